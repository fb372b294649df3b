package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"procodus.dev/device-monitor/internal/store"
)

var _ = Describe("UserRepository", func() {
	var (
		ctx   context.Context
		db    *gorm.DB
		users *store.UserRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = openTestDB()
		users = store.NewUserRepository(db)
	})

	Describe("Create", func() {
		It("should insert a user and assign an ID", func() {
			user := &store.User{Username: "alice", PasswordHash: "hash"}
			Expect(users.Create(ctx, user)).To(Succeed())
			Expect(user.ID).NotTo(BeZero())
		})

		It("should reject a duplicate username", func() {
			Expect(users.Create(ctx, &store.User{Username: "alice", PasswordHash: "hash"})).To(Succeed())

			err := users.Create(ctx, &store.User{Username: "alice", PasswordHash: "other"})
			Expect(err).To(MatchError(store.ErrDuplicateUsername))
		})

		It("should allow distinct usernames", func() {
			Expect(users.Create(ctx, &store.User{Username: "alice", PasswordHash: "hash"})).To(Succeed())
			Expect(users.Create(ctx, &store.User{Username: "bob", PasswordHash: "hash"})).To(Succeed())
		})
	})

	Describe("GetByUsername", func() {
		It("should return the stored user", func() {
			created := &store.User{Username: "alice", PasswordHash: "hash"}
			Expect(users.Create(ctx, created)).To(Succeed())

			user, err := users.GetByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.ID).To(Equal(created.ID))
			Expect(user.PasswordHash).To(Equal("hash"))
		})

		It("should return ErrNotFound for an unknown username", func() {
			user, err := users.GetByUsername(ctx, "nobody")
			Expect(err).To(MatchError(store.ErrNotFound))
			Expect(user).To(BeNil())
		})
	})

	Describe("GetByID", func() {
		It("should return the stored user", func() {
			created := &store.User{Username: "alice", PasswordHash: "hash"}
			Expect(users.Create(ctx, created)).To(Succeed())

			user, err := users.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Username).To(Equal("alice"))
		})

		It("should return ErrNotFound for an unknown ID", func() {
			user, err := users.GetByID(ctx, 4242)
			Expect(err).To(MatchError(store.ErrNotFound))
			Expect(user).To(BeNil())
		})
	})
})
