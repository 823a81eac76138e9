// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package accounts_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gofiber/fiber/v3"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/accounts/internal/auth"
	authredis "github.com/holomush/accounts/internal/auth/redis"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(method, path string, body any) envelope {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var out envelope
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	Expect(out.Status).To(Equal(resp.StatusCode))
	return out
}

var alice = map[string]string{
	"username":   "Alice",
	"email":      "Alice@Example.com",
	"password":   "hunter2",
	"phone":      "+1 555 010 0199",
	"profession": "engineer",
}

var _ = Describe("Accounts API", func() {
	BeforeEach(func() {
		env.reset()
	})

	Describe("registration", func() {
		It("stores normalized identifiers and never returns the hash", func() {
			res := call(http.MethodPost, "/api/v1/users", alice)
			Expect(res.Status).To(Equal(http.StatusCreated))

			var profile auth.Profile
			Expect(json.Unmarshal(res.Data, &profile)).To(Succeed())
			Expect(profile.Username).To(Equal("alice"))
			Expect(profile.Email).To(Equal("alice@example.com"))
			Expect(string(res.Data)).NotTo(ContainSubstring("argon2"))
		})

		It("rejects a duplicate email regardless of case", func() {
			Expect(call(http.MethodPost, "/api/v1/users", alice).Status).To(Equal(http.StatusCreated))

			dup := map[string]string{}
			for k, v := range alice {
				dup[k] = v
			}
			dup["username"] = "alice2"
			dup["phone"] = "+1 555 010 0200"
			dup["email"] = "ALICE@example.com"
			Expect(call(http.MethodPost, "/api/v1/users", dup).Status).To(Equal(http.StatusConflict))
		})

		It("rejects the same phone written another way", func() {
			Expect(call(http.MethodPost, "/api/v1/users", alice).Status).To(Equal(http.StatusCreated))

			dup := map[string]string{
				"username":   "bob",
				"email":      "bob@example.com",
				"password":   "hunter2",
				"phone":      "+1 (555) 010-0199",
				"profession": "baker",
			}
			Expect(call(http.MethodPost, "/api/v1/users", dup).Status).To(Equal(http.StatusConflict))
		})
	})

	Describe("profiles", func() {
		It("updates, lists and deletes through PostgreSQL", func() {
			var profile auth.Profile
			Expect(json.Unmarshal(call(http.MethodPost, "/api/v1/users", alice).Data, &profile)).To(Succeed())

			res := call(http.MethodPatch, "/api/v1/users/"+profile.ID.String(), map[string]string{"profession": "architect"})
			Expect(res.Status).To(Equal(http.StatusOK))

			var listed []auth.Profile
			Expect(json.Unmarshal(call(http.MethodGet, "/api/v1/users", nil).Data, &listed)).To(Succeed())
			Expect(listed).To(HaveLen(1))
			Expect(listed[0].Profession).To(Equal("architect"))

			Expect(call(http.MethodDelete, "/api/v1/users/"+profile.ID.String(), nil).Status).To(Equal(http.StatusOK))
			Expect(call(http.MethodDelete, "/api/v1/users/"+profile.ID.String(), nil).Status).To(Equal(http.StatusNotFound))
		})
	})

	Describe("password recovery", func() {
		It("keeps the code in redis until the reset consumes it", func() {
			Expect(call(http.MethodPost, "/api/v1/users", alice).Status).To(Equal(http.StatusCreated))
			Expect(call(http.MethodPost, "/api/v1/password/forgot", map[string]string{"email": "alice@example.com"}).Status).
				To(Equal(http.StatusOK))

			code := env.notifier.LastCode("alice@example.com")
			Expect(code).To(HaveLen(auth.ResetCodeLength))

			ttl, err := env.client.TTL(env.ctx, authredis.DefaultKeyPrefix+"alice@example.com").Result()
			Expect(err).NotTo(HaveOccurred())
			Expect(ttl).To(BeNumerically(">", 0))
			Expect(ttl).To(BeNumerically("<=", time.Minute))

			verify := map[string]string{"email": "alice@example.com", "code": code}
			Expect(call(http.MethodPost, "/api/v1/password/verify", verify).Status).To(Equal(http.StatusOK))

			reset := map[string]string{"email": "alice@example.com", "new_password": "correct horse"}
			Expect(call(http.MethodPost, "/api/v1/password/reset", reset).Status).To(Equal(http.StatusOK))

			login := map[string]string{"email": "alice@example.com", "password": "correct horse"}
			Expect(call(http.MethodPost, "/api/v1/login", login).Status).To(Equal(http.StatusOK))

			exists, err := env.client.Exists(env.ctx, authredis.DefaultKeyPrefix+"alice@example.com").Result()
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeZero())
			Expect(call(http.MethodPost, "/api/v1/password/reset", reset).Status).To(Equal(http.StatusConflict))
		})
	})
})
