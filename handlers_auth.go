package main

import (
	"net/http"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"github.com/gin-gonic/gin"
)

func signUpHandler(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	user, err := models.SignUp(c.Request.Context(), &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, "account created", user)
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func signInHandler(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	user, tokens, err := models.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		sendError(c, http.StatusUnauthorized, err.Error(), nil)
		return
	}
	sendSuccess(c, http.StatusOK, "signed in", gin.H{
		"user":   user,
		"tokens": tokens,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func refreshTokenHandler(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	user, tokens, err := models.RefreshSession(c.Request.Context(), req.RefreshToken)
	if err != nil {
		sendError(c, http.StatusUnauthorized, err.Error(), nil)
		return
	}
	sendSuccess(c, http.StatusOK, "session refreshed", gin.H{
		"user":   user,
		"tokens": tokens,
	})
}

func signOutHandler(c *gin.Context) {
	userId, ok := utils.GetUserIdFromContext(c.Request.Context())
	if !ok {
		sendError(c, http.StatusUnauthorized, "authorization required", nil)
		return
	}
	if err := models.SignOut(c.Request.Context(), userId); err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "signed out", nil)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

func changePasswordHandler(c *gin.Context) {
	userId, ok := utils.GetUserIdFromContext(c.Request.Context())
	if !ok {
		sendError(c, http.StatusUnauthorized, "authorization required", nil)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}
	if err := models.ChangePassword(c.Request.Context(), userId, req.CurrentPassword, req.NewPassword); err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "password changed", nil)
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func forgotPasswordHandler(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	// Do not reveal whether the account exists.
	_, err := models.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil && err != utils.ErrorRecordNotFound {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "if the account exists, a reset code has been sent", nil)
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func resetPasswordHandler(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}
	if err := models.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		sendError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	sendSuccess(c, http.StatusOK, "password reset", nil)
}

func getProfileHandler(c *gin.Context) {
	userId, ok := utils.GetUserIdFromContext(c.Request.Context())
	if !ok {
		sendError(c, http.StatusUnauthorized, "authorization required", nil)
		return
	}
	user, err := models.CachedUser(c.Request.Context(), userId)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "profile", user)
}

func updateProfileHandler(c *gin.Context) {
	userId, ok := utils.GetUserIdFromContext(c.Request.Context())
	if !ok {
		sendError(c, http.StatusUnauthorized, "authorization required", nil)
		return
	}

	var input models.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		sendError(c, http.StatusBadRequest, "invalid request", err)
		return
	}
	user, err := models.UpdateProfile(c.Request.Context(), userId, &input)
	if err != nil {
		sendModelError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, "profile updated", user)
}
