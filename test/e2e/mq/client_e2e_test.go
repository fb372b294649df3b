package mq

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	clientmq "procodus.dev/device-monitor/pkg/mq"
)

var _ = Describe("MQ Client E2E", func() {
	var (
		client    *clientmq.Client
		queueName string
	)

	BeforeEach(func() {
		// Unique queue per spec so tests do not see each other's messages
		queueName = "e2e-queue-" + time.Now().Format("20060102-150405.000")
	})

	AfterEach(func() {
		if client != nil {
			_ = client.Close()
			client = nil
		}
	})

	Describe("Connection", func() {
		It("should connect to RabbitMQ successfully", func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			Expect(client).NotTo(BeNil())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			Expect(client.Push(ctx, []byte("connectivity probe"))).To(Succeed())
		})

		It("should keep retrying on an unreachable broker without crashing", func() {
			invalidClient := clientmq.New("e2e-queue", "amqp://invalid:5672", testLogger)
			Expect(invalidClient).NotTo(BeNil())

			time.Sleep(500 * time.Millisecond)

			_ = invalidClient.Close()
		})
	})

	Describe("Publishing", func() {
		BeforeEach(func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
		})

		It("should publish a message successfully", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			Expect(client.Push(ctx, []byte("test message"))).To(Succeed())
		})

		It("should publish many messages in sequence", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			for i := 0; i < 20; i++ {
				Expect(client.Push(ctx, fmt.Appendf(nil, "message %d", i))).To(Succeed())
			}
		})

		It("should respect context cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := client.Push(ctx, []byte("never sent"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Consuming", func() {
		BeforeEach(func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
		})

		It("should receive a published message", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			Expect(client.Push(ctx, []byte("round trip"))).To(Succeed())

			deliveries, err := client.Consume()
			Expect(err).NotTo(HaveOccurred())

			select {
			case delivery := <-deliveries:
				Expect(string(delivery.Body)).To(Equal("round trip"))
				Expect(delivery.Ack(false)).To(Succeed())
			case <-time.After(10 * time.Second):
				Fail("timed out waiting for delivery")
			}
		})

		It("should preserve publish order", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			for i := 0; i < 5; i++ {
				Expect(client.Push(ctx, fmt.Appendf(nil, "ordered %d", i))).To(Succeed())
			}

			deliveries, err := client.Consume()
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 5; i++ {
				select {
				case delivery := <-deliveries:
					Expect(string(delivery.Body)).To(Equal(fmt.Sprintf("ordered %d", i)))
					Expect(delivery.Ack(false)).To(Succeed())
				case <-time.After(10 * time.Second):
					Fail("timed out waiting for delivery")
				}
			}
		})

		It("should redeliver a nacked message", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			Expect(client.Push(ctx, []byte("try again"))).To(Succeed())

			deliveries, err := client.Consume()
			Expect(err).NotTo(HaveOccurred())

			select {
			case delivery := <-deliveries:
				Expect(delivery.Nack(false, true)).To(Succeed())
			case <-time.After(10 * time.Second):
				Fail("timed out waiting for first delivery")
			}

			select {
			case delivery := <-deliveries:
				Expect(string(delivery.Body)).To(Equal("try again"))
				Expect(delivery.Ack(false)).To(Succeed())
			case <-time.After(10 * time.Second):
				Fail("timed out waiting for redelivery")
			}
		})
	})

	Describe("Close", func() {
		It("should close cleanly after publishing", func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			Expect(client.Push(ctx, []byte("final message"))).To(Succeed())

			Expect(client.Close()).To(Succeed())
			client = nil
		})
	})
})
