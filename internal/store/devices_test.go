package store_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"procodus.dev/device-monitor/internal/store"
)

var _ = Describe("DeviceRepository", func() {
	var (
		ctx         context.Context
		db          *gorm.DB
		devices     *store.DeviceRepository
		diagnostics *store.DiagnosticRepository
		alice       *store.User
		bob         *store.User
	)

	createDevice := func(owner *store.User, name, location, status string) *store.Device {
		GinkgoHelper()
		device := &store.Device{
			Name:       name,
			DeviceType: "sensor",
			Status:     status,
			Location:   location,
			UserID:     owner.ID,
		}
		Expect(devices.Create(ctx, device)).To(Succeed())
		return device
	}

	BeforeEach(func() {
		ctx = context.Background()
		db = openTestDB()
		devices = store.NewDeviceRepository(db)
		diagnostics = store.NewDiagnosticRepository(db)

		users := store.NewUserRepository(db)
		alice = &store.User{Username: "alice", PasswordHash: "hash"}
		bob = &store.User{Username: "bob", PasswordHash: "hash"}
		Expect(users.Create(ctx, alice)).To(Succeed())
		Expect(users.Create(ctx, bob)).To(Succeed())
	})

	Describe("Create and GetByID", func() {
		It("should round-trip a device", func() {
			created := createDevice(alice, "thermostat-1", "Berlin", store.StatusOnline)

			device, err := devices.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(device.Name).To(Equal("thermostat-1"))
			Expect(device.UserID).To(Equal(alice.ID))
		})

		It("should return ErrNotFound for an unknown device", func() {
			device, err := devices.GetByID(ctx, 4242)
			Expect(err).To(MatchError(store.ErrNotFound))
			Expect(device).To(BeNil())
		})
	})

	Describe("GetByOwner", func() {
		It("should only return the owner's devices", func() {
			createDevice(alice, "a-1", "Berlin", store.StatusOnline)
			createDevice(alice, "a-2", "Berlin", store.StatusOffline)
			createDevice(bob, "b-1", "Hamburg", store.StatusOnline)

			owned, err := devices.GetByOwner(ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(owned).To(HaveLen(2))
			for _, device := range owned {
				Expect(device.UserID).To(Equal(alice.ID))
			}
		})

		It("should return an empty slice for a user without devices", func() {
			owned, err := devices.GetByOwner(ctx, bob.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(owned).To(BeEmpty())
		})
	})

	Describe("Update", func() {
		It("should persist the mutable columns", func() {
			device := createDevice(alice, "old-name", "Berlin", store.StatusOnline)

			device.Name = "new-name"
			device.Status = store.StatusError
			device.Location = "Munich"
			Expect(devices.Update(ctx, device)).To(Succeed())

			stored, err := devices.GetByID(ctx, device.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Name).To(Equal("new-name"))
			Expect(stored.Status).To(Equal(store.StatusError))
			Expect(stored.Location).To(Equal("Munich"))
		})

		It("should never change the owner", func() {
			device := createDevice(alice, "device", "Berlin", store.StatusOnline)

			device.UserID = bob.ID
			Expect(devices.Update(ctx, device)).To(Succeed())

			stored, err := devices.GetByID(ctx, device.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.UserID).To(Equal(alice.ID))
		})

		It("should return ErrNotFound for an unknown device", func() {
			err := devices.Update(ctx, &store.Device{
				Name:       "ghost",
				DeviceType: "sensor",
				Status:     store.StatusOnline,
				Location:   "Nowhere",
				ID:         4242,
			})
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("should remove the device and its diagnostics", func() {
			device := createDevice(alice, "device", "Berlin", store.StatusOnline)
			for i := 0; i < 3; i++ {
				Expect(diagnostics.Create(ctx, &store.DeviceDiagnostic{
					DeviceID:    device.ID,
					CPUUsage:    float64(10 * i),
					MemoryUsage: float64(20 * i),
				})).To(Succeed())
			}

			Expect(devices.Delete(ctx, device.ID)).To(Succeed())

			_, err := devices.GetByID(ctx, device.ID)
			Expect(err).To(MatchError(store.ErrNotFound))

			count, err := diagnostics.CountByDevice(ctx, device.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("should leave other devices' diagnostics alone", func() {
			doomed := createDevice(alice, "doomed", "Berlin", store.StatusOnline)
			kept := createDevice(alice, "kept", "Berlin", store.StatusOnline)
			Expect(diagnostics.Create(ctx, &store.DeviceDiagnostic{DeviceID: doomed.ID, CPUUsage: 1, MemoryUsage: 1})).To(Succeed())
			Expect(diagnostics.Create(ctx, &store.DeviceDiagnostic{DeviceID: kept.ID, CPUUsage: 2, MemoryUsage: 2})).To(Succeed())

			Expect(devices.Delete(ctx, doomed.ID)).To(Succeed())

			count, err := diagnostics.CountByDevice(ctx, kept.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("should return ErrNotFound for an unknown device", func() {
			Expect(devices.Delete(ctx, 4242)).To(MatchError(store.ErrNotFound))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			// 12 devices for alice so the listing spans three pages.
			for i := 1; i <= 12; i++ {
				status := store.StatusOnline
				if i%2 == 0 {
					status = store.StatusOffline
				}
				createDevice(alice, fmt.Sprintf("device-%02d", i), fmt.Sprintf("Room %d", i), status)
			}
			createDevice(bob, "intruder", "Room 1", store.StatusOnline)
		})

		It("should return full pages of five rows", func() {
			page, err := devices.List(ctx, alice.ID, store.DeviceFilter{}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(HaveLen(5))
			Expect(page.Total).To(Equal(int64(12)))
			Expect(page.TotalPages).To(Equal(3))
			Expect(page.HasPrev()).To(BeFalse())
			Expect(page.HasNext()).To(BeTrue())
		})

		It("should return the two leftover rows on the last page", func() {
			page, err := devices.List(ctx, alice.ID, store.DeviceFilter{}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(HaveLen(2))
			Expect(page.HasPrev()).To(BeTrue())
			Expect(page.HasNext()).To(BeFalse())
		})

		It("should return an empty page past the end", func() {
			page, err := devices.List(ctx, alice.ID, store.DeviceFilter{}, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(BeEmpty())
			Expect(page.Total).To(Equal(int64(12)))
		})

		It("should return an empty page for a malformed page number", func() {
			for _, page := range []int{0, -1} {
				result, err := devices.List(ctx, alice.ID, store.DeviceFilter{}, page)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Items).To(BeEmpty())
			}
		})

		It("should never include another user's devices", func() {
			page, err := devices.List(ctx, alice.ID, store.DeviceFilter{Location: "Room 1"}, 1)
			Expect(err).NotTo(HaveOccurred())
			for _, device := range page.Items {
				Expect(device.UserID).To(Equal(alice.ID))
			}
		})

		It("should filter by exact ID", func() {
			all, err := devices.GetByOwner(ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			target := all[4]

			page, err := devices.List(ctx, alice.ID, store.DeviceFilter{ID: target.ID}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(HaveLen(1))
			Expect(page.Items[0].ID).To(Equal(target.ID))
		})

		It("should filter by location substring case-insensitively", func() {
			page, err := devices.List(ctx, alice.ID, store.DeviceFilter{Location: "room 12"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Items).To(HaveLen(1))
			Expect(page.Items[0].Location).To(Equal("Room 12"))
		})

		It("should filter by status substring case-insensitively", func() {
			page, err := devices.List(ctx, alice.ID, store.DeviceFilter{Status: "OFF"}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Total).To(Equal(int64(6)))
			for _, device := range page.Items {
				Expect(device.Status).To(Equal(store.StatusOffline))
			}
		})

		It("should combine filters with AND", func() {
			page, err := devices.List(ctx, alice.ID, store.DeviceFilter{Location: "Room 1", Status: store.StatusOnline}, 1)
			Expect(err).NotTo(HaveOccurred())
			// Rooms 1, 10-12 match the substring; of those 1 and 11 are online.
			Expect(page.Total).To(Equal(int64(2)))
		})
	})
})
