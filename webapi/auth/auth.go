// Package auth exposes the operator login route.
package auth

import (
	"github.com/gofiber/fiber/v2"
	authsvc "github.com/rbxmart/rbxmart/pkg/service/auth"
	"github.com/rbxmart/rbxmart/webapi/common"
)

// LoginRequest is the operator login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Routes registers the auth routes.
func Routes(app *fiber.App, svc *authsvc.Service) {
	app.Post("/auth/login", Login(svc))
}

// Login checks operator credentials and returns a bearer token.
func Login(svc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := common.BindAndValidate[LoginRequest](c)
		if err != nil {
			return nil
		}
		token, err := svc.Login(c.Context(), req.Email, req.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid credentials", err, fiber.StatusUnauthorized)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Logged in", fiber.Map{"token": token})
	}
}
