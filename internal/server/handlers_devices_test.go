package server_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"procodus.dev/device-monitor/internal/store"
)

var _ = Describe("Device handlers", func() {
	var (
		app   *testApp
		alice *store.User
		bob   *store.User
	)

	BeforeEach(func() {
		app = newTestApp()
		alice = app.createUser("alice", "Monitor1!")
		bob = app.createUser("bob", "Monitor1!")
	})

	Describe("listing", func() {
		It("should render the owner's devices", func() {
			app.createDevice(alice, "thermostat-1")
			app.createDevice(bob, "bobs-device")

			recorder := app.get("/devices/home", alice)
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Body.String()).To(ContainSubstring("thermostat-1"))
			Expect(recorder.Body.String()).NotTo(ContainSubstring("bobs-device"))
		})

		It("should paginate five devices per page", func() {
			for i := 1; i <= 7; i++ {
				app.createDevice(alice, fmt.Sprintf("device-%02d", i))
			}

			first := app.get("/devices/home", alice)
			Expect(first.Body.String()).To(ContainSubstring("device-01"))
			Expect(first.Body.String()).NotTo(ContainSubstring("device-06"))

			second := app.get("/devices/home?page=2", alice)
			Expect(second.Body.String()).To(ContainSubstring("device-06"))
			Expect(second.Body.String()).To(ContainSubstring("device-07"))
			Expect(second.Body.String()).NotTo(ContainSubstring("device-05"))
		})

		It("should filter by status", func() {
			online := app.createDevice(alice, "online-device")
			offline := app.createDevice(alice, "offline-device")
			offline.Status = store.StatusOffline
			Expect(app.devices.Update(context.Background(), offline)).To(Succeed())
			_ = online

			recorder := app.get("/devices/home?status=offline", alice)
			Expect(recorder.Body.String()).To(ContainSubstring("offline-device"))
			Expect(recorder.Body.String()).NotTo(ContainSubstring("online-device"))
		})

		It("should render an empty listing for an unparsable id filter", func() {
			app.createDevice(alice, "thermostat-1")

			recorder := app.get("/devices/home?id=abc", alice)
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Body.String()).NotTo(ContainSubstring("thermostat-1"))
		})
	})

	Describe("adding", func() {
		It("should serve the add form", func() {
			recorder := app.get("/devices/add", alice)
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Body.String()).To(ContainSubstring("Add Device"))
		})

		It("should create a device and lower-case the status", func() {
			recorder := app.postForm("/devices/add", alice, url.Values{
				"name":        {"thermostat-1"},
				"device_type": {"thermostat"},
				"location":    {"Berlin, Office"},
				"status":      {"Online"},
			})
			Expect(location(recorder)).To(Equal("/devices/home"))

			category, message := flashFrom(recorder)
			Expect(category).To(Equal("success"))
			Expect(message).To(Equal("Device added successfully!"))

			owned, err := app.devices.GetByOwner(context.Background(), alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(owned).To(HaveLen(1))
			Expect(owned[0].Status).To(Equal(store.StatusOnline))
		})

		It("should reject a bad name", func() {
			recorder := app.postForm("/devices/add", alice, url.Values{
				"name":        {"x"},
				"device_type": {"thermostat"},
				"location":    {"Berlin"},
				"status":      {"online"},
			})
			Expect(location(recorder)).To(Equal("/devices/add"))

			category, message := flashFrom(recorder)
			Expect(category).To(Equal("danger"))
			Expect(message).To(ContainSubstring("Invalid name"))
		})

		It("should reject an unknown status", func() {
			recorder := app.postForm("/devices/add", alice, url.Values{
				"name":        {"thermostat-1"},
				"device_type": {"thermostat"},
				"location":    {"Berlin"},
				"status":      {"sleeping"},
			})
			_, message := flashFrom(recorder)
			Expect(message).To(Equal("Status must be: online, offline, or error."))
		})
	})

	Describe("updating", func() {
		It("should apply the submitted form", func() {
			device := app.createDevice(alice, "old-name")

			recorder := app.postForm("/devices/update/"+strconv.FormatUint(uint64(device.ID), 10), alice, url.Values{
				"name":        {"new-name"},
				"device_type": {"camera"},
				"location":    {"Munich"},
				"status":      {"ERROR"},
			})
			Expect(location(recorder)).To(Equal("/devices/home"))

			category, message := flashFrom(recorder)
			Expect(category).To(Equal("success"))
			Expect(message).To(Equal("Device updated successfully!"))

			stored, err := app.devices.GetByID(context.Background(), device.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Name).To(Equal("new-name"))
			Expect(stored.Status).To(Equal(store.StatusError))
		})

		It("should reject another user's device", func() {
			device := app.createDevice(alice, "alices-device")

			recorder := app.postForm("/devices/update/"+strconv.FormatUint(uint64(device.ID), 10), bob, url.Values{
				"name":        {"stolen"},
				"device_type": {"camera"},
				"location":    {"Munich"},
				"status":      {"online"},
			})
			Expect(location(recorder)).To(Equal("/devices/home"))

			category, message := flashFrom(recorder)
			Expect(category).To(Equal("danger"))
			Expect(message).To(Equal("Unauthorized access to this device."))

			stored, err := app.devices.GetByID(context.Background(), device.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Name).To(Equal("alices-device"))
		})

		It("should warn about an unknown device", func() {
			recorder := app.get("/devices/update/4242", alice)
			Expect(location(recorder)).To(Equal("/devices/home"))

			category, message := flashFrom(recorder)
			Expect(category).To(Equal("warning"))
			Expect(message).To(Equal("Device not found."))
		})

		It("should treat a malformed id as not found", func() {
			recorder := app.get("/devices/update/abc", alice)
			_, message := flashFrom(recorder)
			Expect(message).To(Equal("Device not found."))
		})
	})

	Describe("deleting", func() {
		It("should remove the device and its diagnostics", func() {
			device := app.createDevice(alice, "doomed")
			Expect(app.diagnostics.Create(context.Background(), &store.DeviceDiagnostic{
				DeviceID: device.ID, CPUUsage: 10, MemoryUsage: 20,
			})).To(Succeed())

			recorder := app.get("/devices/delete/"+strconv.FormatUint(uint64(device.ID), 10), alice)
			Expect(location(recorder)).To(Equal("/devices/home"))

			category, message := flashFrom(recorder)
			Expect(category).To(Equal("success"))
			Expect(message).To(Equal("Device and its diagnostics deleted successfully!"))

			_, err := app.devices.GetByID(context.Background(), device.ID)
			Expect(err).To(MatchError(store.ErrNotFound))

			count, err := app.diagnostics.CountByDevice(context.Background(), device.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("should reject another user's device", func() {
			device := app.createDevice(alice, "alices-device")

			recorder := app.get("/devices/delete/"+strconv.FormatUint(uint64(device.ID), 10), bob)
			_, message := flashFrom(recorder)
			Expect(message).To(Equal("Unauthorized access to this device."))

			_, err := app.devices.GetByID(context.Background(), device.ID)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("catch-all paths", func() {
		It("should redirect stray paths to the device listing", func() {
			recorder := app.get("/devices/bogus", alice)
			Expect(location(recorder)).To(Equal("/devices/home"))

			category, message := flashFrom(recorder)
			Expect(category).To(Equal("warning"))
			Expect(message).To(Equal("Invalid device path '/devices/bogus'. Redirected to Device Home."))
		})
	})
})
