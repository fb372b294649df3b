package auth_test

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"procodus.dev/device-monitor/internal/auth"
)

var _ = Describe("TokenManager", func() {
	var tokens *auth.TokenManager

	BeforeEach(func() {
		var err error
		tokens, err = auth.NewTokenManager("test-secret", auth.DefaultTokenTTL)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewTokenManager", func() {
		It("should reject an empty secret", func() {
			manager, err := auth.NewTokenManager("", time.Minute)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("secret"))
			Expect(manager).To(BeNil())
		})

		It("should fall back to the default TTL", func() {
			manager, err := auth.NewTokenManager("secret", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(manager.TTL()).To(Equal(auth.DefaultTokenTTL))
		})

		It("should keep an explicit TTL", func() {
			manager, err := auth.NewTokenManager("secret", time.Hour)
			Expect(err).NotTo(HaveOccurred())
			Expect(manager.TTL()).To(Equal(time.Hour))
		})
	})

	Describe("Issue and Verify", func() {
		It("should round-trip the user ID", func() {
			token, err := tokens.Issue(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(token).NotTo(BeEmpty())

			userID, err := tokens.Verify(token)
			Expect(err).NotTo(HaveOccurred())
			Expect(userID).To(Equal(uint(42)))
		})

		It("should reject an expired token", func() {
			short, err := auth.NewTokenManager("test-secret", time.Millisecond)
			Expect(err).NotTo(HaveOccurred())

			token, err := short.Issue(42)
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() error {
				_, err := short.Verify(token)
				return err
			}, "5s", "100ms").Should(MatchError(auth.ErrTokenExpired))
		})

		It("should reject a token signed with a different secret", func() {
			other, err := auth.NewTokenManager("other-secret", auth.DefaultTokenTTL)
			Expect(err).NotTo(HaveOccurred())

			token, err := other.Issue(42)
			Expect(err).NotTo(HaveOccurred())

			_, err = tokens.Verify(token)
			Expect(err).To(MatchError(auth.ErrTokenInvalid))
		})

		It("should reject a tampered token", func() {
			token, err := tokens.Issue(42)
			Expect(err).NotTo(HaveOccurred())

			parts := strings.Split(token, ".")
			Expect(parts).To(HaveLen(3))
			tampered := parts[0] + "." + parts[1] + "x." + parts[2]

			_, err = tokens.Verify(tampered)
			Expect(err).To(MatchError(auth.ErrTokenInvalid))
		})

		It("should reject garbage input", func() {
			for _, input := range []string{"", "garbage", "a.b.c"} {
				_, err := tokens.Verify(input)
				Expect(err).To(MatchError(auth.ErrTokenInvalid))
			}
		})

		It("should reject the none signing algorithm", func() {
			unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
				Subject:   "42",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			})
			token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
			Expect(err).NotTo(HaveOccurred())

			_, err = tokens.Verify(token)
			Expect(err).To(MatchError(auth.ErrTokenInvalid))
		})

		It("should reject a token without a numeric subject", func() {
			claims := jwt.RegisteredClaims{
				Subject:   "not-a-number",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
			Expect(err).NotTo(HaveOccurred())

			_, err = tokens.Verify(signed)
			Expect(err).To(MatchError(auth.ErrTokenInvalid))
		})
	})
})
