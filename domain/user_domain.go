package domain

import (
	"errors"
)

var (
	MessageSuccessRegister       = "user registered successfully"
	MessageSuccessLogin          = "login success"
	MessageSuccessGetMe          = "success get current user"
	MessageSuccessGetUser        = "success get user profile"
	MessageSuccessSetPassword    = "password changed successfully"
	MessageSuccessForgotPassword = "reset password email sent"
	MessageSuccessResetPassword  = "password reset successfully"

	MessageFailedRegister       = "failed to register user"
	MessageFailedLogin          = "failed to login"
	MessageFailedGetMe          = "failed to get current user"
	MessageFailedGetUser        = "failed to get user profile"
	MessageFailedSetPassword    = "failed to change password"
	MessageFailedForgotPassword = "failed to send reset password email"
	MessageFailedResetPassword  = "failed to reset password"

	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrCredentialsInvalid = errors.New("invalid email or password")
	ErrPasswordSame       = errors.New("new password must differ from the current one")
)

type (
	UserRegisterRequest struct {
		Email     string `json:"email" validate:"required,email"`
		Username  string `json:"username" validate:"required,min=3,max=100"`
		FirstName string `json:"first_name" validate:"required,max=100"`
		LastName  string `json:"last_name" validate:"required,max=100"`
		Password  string `json:"password" validate:"required,min=8"`
	}

	UserLoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	UserLoginResponse struct {
		Token string `json:"auth_token"`
		Role  string `json:"role"`
	}

	UserResponse struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		Username     string `json:"username"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
		IsSubscribed bool   `json:"is_subscribed"`
	}

	SetPasswordRequest struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=8"`
	}

	ForgotPasswordRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	ResetPasswordRequest struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=8"`
	}
)
