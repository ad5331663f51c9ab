package server

import (
	"sociallink/internal/middleware"
	"sociallink/internal/models"
	"sociallink/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type otpRequest struct {
	Email string `json:"email" form:"email"`
	OTP   string `json:"otp" form:"otp"`
}

type setPasswordRequest struct {
	Email                string `json:"email" form:"email"`
	Password             string `json:"password" form:"password"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create an account and return a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration"
// @Success 201 {object} object{status=bool,message=string,user=models.User,token=string}
// @Failure 400 {object} object{status=bool,message=string}
// @Failure 409 {object} object{status=bool,message=string}
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return models.RespondFailure(c, err)
	}

	r := models.OK("User registered successfully", "user", res.User).Map()
	r["token"] = res.Token
	return c.Status(fiber.StatusCreated).JSON(r)
}

// Login handles POST /api/auth/login
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} object{status=bool,message=string,user=models.User,token=string}
// @Failure 401 {object} object{status=bool,message=string}
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondFailure(c, err)
	}

	r := models.OK("Login successful", "user", res.User).Map()
	r["token"] = res.Token
	return c.JSON(r)
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Marks the user inactive and revokes the presented token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{status=bool,message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := middleware.Claims(c)
	if err := s.authService.Logout(c.UserContext(), currentUser(c), claims); err != nil {
		return models.RespondFailure(c, err)
	}
	return models.RespondResult(c, fiber.StatusOK, models.OK("Logged out successfully", "", nil))
}

// Me handles GET /api/auth/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.authService.Me(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(user)
}

// ForgotPassword handles POST /api/auth/forgot-password
// @Summary Request a password reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Account email"
// @Success 200 {object} object{status=bool,message=string}
// @Router /auth/forgot-password [post]
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	var req otpRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.authService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return models.RespondFailure(c, err)
	}
	return models.RespondResult(c, fiber.StatusOK, models.OK("OTP sent to your email", "", nil))
}

// ValidateOTP handles POST /api/auth/validate-otp
// @Summary Validate a password reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body otpRequest true "Email and code"
// @Success 200 {object} object{status=bool,message=string}
// @Router /auth/validate-otp [post]
func (s *Server) ValidateOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.authService.ValidateOTP(c.UserContext(), req.Email, req.OTP); err != nil {
		return models.RespondFailure(c, err)
	}
	return models.RespondResult(c, fiber.StatusOK, models.OK("OTP validated successfully", "", nil))
}

// SetNewPassword handles POST /api/auth/set-new-password
// @Summary Set a new password after OTP validation
// @Tags auth
// @Accept json
// @Produce json
// @Param request body setPasswordRequest true "New password"
// @Success 200 {object} object{status=bool,message=string}
// @Router /auth/set-new-password [post]
func (s *Server) SetNewPassword(c *fiber.Ctx) error {
	var req setPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	err := s.authService.SetNewPassword(c.UserContext(), service.SetNewPasswordInput{
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return models.RespondResult(c, fiber.StatusOK, models.OK("Password updated successfully", "", nil))
}
