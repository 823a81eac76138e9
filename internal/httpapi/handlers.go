// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"github.com/gofiber/fiber/v3"
	"github.com/oklog/ulid/v2"

	"github.com/holomush/accounts/internal/auth"
)

type handlers struct {
	svc AccountService
}

type registerRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	Profession string `json:"profession"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateRequest struct {
	Username   string `json:"username"`
	Phone      string `json:"phone"`
	Profession string `json:"profession"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

func bindBody(c fiber.Ctx, out any) error {
	if err := c.Bind().Body(out); err != nil {
		return errInvalidBody(err)
	}
	return nil
}

func userID(c fiber.Ctx) (ulid.ULID, error) {
	raw := c.Params("id")
	id, err := ulid.ParseStrict(raw)
	if err != nil {
		return ulid.ULID{}, errInvalidUserID(raw, err)
	}
	return id, nil
}

func (h *handlers) register(c fiber.Ctx) error {
	var req registerRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	profile, err := h.svc.Register(c.Context(), auth.RegisterInput(req))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, MessageOK, profile)
}

func (h *handlers) login(c fiber.Ctx) error {
	var req loginRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	profile, err := h.svc.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, MessageOK, profile)
}

func (h *handlers) listUsers(c fiber.Ctx) error {
	profiles, err := h.svc.ListUsers(c.Context())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, MessageOK, profiles)
}

func (h *handlers) userExists(c fiber.Ctx) error {
	found, err := h.svc.UserExists(c.Context(), c.Query("email"), c.Query("phone"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, MessageOK, existsResponse{Exists: found})
}

func (h *handlers) updateUser(c fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req updateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	profile, err := h.svc.UpdateUser(c.Context(), id, auth.ProfileUpdate(req))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, MessageOK, profile)
}

func (h *handlers) deleteUser(c fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Context(), id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, MessageUserDeleted, nil)
}

func (h *handlers) forgotPassword(c fiber.Ctx) error {
	var req forgotRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := h.svc.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, MessageResetSent, nil)
}

func (h *handlers) verifyCode(c fiber.Ctx) error {
	var req verifyRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := h.svc.VerifyResetCode(c.Context(), req.Email, req.Code); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, MessageCodeVerified, nil)
}

func (h *handlers) resetPassword(c fiber.Ctx) error {
	var req resetRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := h.svc.ResetPassword(c.Context(), req.Email, req.NewPassword); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, MessagePasswordUpdate, nil)
}
