package auth_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"procodus.dev/device-monitor/internal/auth"
)

var _ = Describe("Cookie", func() {
	Describe("SetTokenCookie", func() {
		It("should set a scoped, HTTP-only cookie", func() {
			recorder := httptest.NewRecorder()
			auth.SetTokenCookie(recorder, "token-value", 30*time.Minute, false)

			cookies := recorder.Result().Cookies()
			Expect(cookies).To(HaveLen(1))
			cookie := cookies[0]
			Expect(cookie.Name).To(Equal(auth.TokenCookieName))
			Expect(cookie.Value).To(Equal("token-value"))
			Expect(cookie.Path).To(Equal("/"))
			Expect(cookie.HttpOnly).To(BeTrue())
			Expect(cookie.Secure).To(BeFalse())
			Expect(cookie.SameSite).To(Equal(http.SameSiteLaxMode))
			Expect(cookie.MaxAge).To(Equal(int((30 * time.Minute).Seconds())))
		})

		It("should mark the cookie Secure when asked", func() {
			recorder := httptest.NewRecorder()
			auth.SetTokenCookie(recorder, "token-value", time.Minute, true)

			cookie := recorder.Result().Cookies()[0]
			Expect(cookie.Secure).To(BeTrue())
		})
	})

	Describe("ClearTokenCookie", func() {
		It("should expire the cookie", func() {
			recorder := httptest.NewRecorder()
			auth.ClearTokenCookie(recorder, false)

			cookie := recorder.Result().Cookies()[0]
			Expect(cookie.Name).To(Equal(auth.TokenCookieName))
			Expect(cookie.Value).To(BeEmpty())
			Expect(cookie.MaxAge).To(BeNumerically("<", 0))
		})
	})

	Describe("TokenFromRequest", func() {
		It("should extract the token", func() {
			request := httptest.NewRequest(http.MethodGet, "/devices", nil)
			request.AddCookie(&http.Cookie{Name: auth.TokenCookieName, Value: "token-value"})

			Expect(auth.TokenFromRequest(request)).To(Equal("token-value"))
		})

		It("should return empty for a request without the cookie", func() {
			request := httptest.NewRequest(http.MethodGet, "/devices", nil)
			Expect(auth.TokenFromRequest(request)).To(BeEmpty())
		})
	})
})
