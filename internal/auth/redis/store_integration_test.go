// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/accounts/internal/auth"
	authredis "github.com/holomush/accounts/internal/auth/redis"
)

var _ = Describe("ResetCodeStore", Ordered, func() {
	var (
		ctx       context.Context
		container testcontainers.Container
		client    *goredis.Client
		store     *authredis.ResetCodeStore
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
		Expect(err).NotTo(HaveOccurred())

		host, err := container.Host(ctx)
		Expect(err).NotTo(HaveOccurred())
		port, err := container.MappedPort(ctx, "6379/tcp")
		Expect(err).NotTo(HaveOccurred())

		client = goredis.NewClient(&goredis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
		store = authredis.NewResetCodeStore(client, authredis.WithKeyPrefix("test:reset:"))
		Expect(store.Ping(ctx)).To(Succeed())
	})

	AfterAll(func() {
		if client != nil {
			Expect(client.Close()).To(Succeed())
		}
		if container != nil {
			Expect(container.Terminate(ctx)).To(Succeed())
		}
	})

	AfterEach(func() {
		Expect(client.FlushDB(ctx).Err()).To(Succeed())
	})

	It("reports a missing entry as not found", func() {
		_, err := store.Get(ctx, "ghost@example.com")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("round-trips an entry and sets the key TTL", func() {
		created := time.Now().UTC().Truncate(time.Second)
		Expect(store.Put(ctx, &auth.ResetCode{
			Email:     "alice@example.com",
			Code:      "482913",
			CreatedAt: created,
			ExpiresAt: created.Add(10 * time.Minute),
		})).To(Succeed())

		got, err := store.Get(ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Code).To(Equal("482913"))
		Expect(got.CreatedAt.Equal(created)).To(BeTrue())

		ttl, err := client.TTL(ctx, "test:reset:alice@example.com").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(ttl).To(BeNumerically(">", 9*time.Minute))
		Expect(ttl).To(BeNumerically("<=", 10*time.Minute))
	})

	It("stores codes without expiry as persistent keys", func() {
		Expect(store.Put(ctx, &auth.ResetCode{Email: "alice@example.com", Code: "111111"})).To(Succeed())

		ttl, err := client.TTL(ctx, "test:reset:alice@example.com").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(ttl).To(Equal(time.Duration(-1)))
	})

	It("lets Redis expire entries", func() {
		Expect(store.Put(ctx, &auth.ResetCode{
			Email:     "alice@example.com",
			Code:      "222222",
			ExpiresAt: time.Now().Add(150 * time.Millisecond),
		})).To(Succeed())

		Eventually(func() error {
			_, err := store.Get(ctx, "alice@example.com")
			return err
		}).WithTimeout(2 * time.Second).WithPolling(50 * time.Millisecond).Should(MatchError(auth.ErrNotFound))
	})

	It("replaces and deletes entries", func() {
		Expect(store.Put(ctx, &auth.ResetCode{Email: "alice@example.com", Code: "111111"})).To(Succeed())
		Expect(store.Put(ctx, &auth.ResetCode{Email: "alice@example.com", Code: "222222"})).To(Succeed())

		got, err := store.Get(ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Code).To(Equal("222222"))

		Expect(store.Delete(ctx, "alice@example.com")).To(Succeed())
		Expect(store.Delete(ctx, "alice@example.com")).To(Succeed())
		_, err = store.Get(ctx, "alice@example.com")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("backs a registry end to end", func() {
		registry, err := auth.NewResetCodeRegistry(store, auth.WithCodeTTL(time.Minute))
		Expect(err).NotTo(HaveOccurred())

		code, err := registry.Issue(ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())

		ok, err := registry.Verify(ctx, "alice@example.com", code)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		Expect(registry.Consume(ctx, "alice@example.com")).To(Succeed())
		exists, err := registry.Exists(ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})
})
