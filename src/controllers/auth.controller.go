package controllers

import (
	"eduspace/src/config"
	"eduspace/src/db"
	"eduspace/src/lib"
	"eduspace/src/models"
	"eduspace/src/types"
	"eduspace/src/utils"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthPayload struct {
	Token string                `json:"token"`
	User  types.APIResponseUser `json:"user"`
}

func AuthRegister(ctx *gin.Context) (*AuthPayload, int, error) {
	var body types.RegisterRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	// Admin accounts are provisioned out-of-band only.
	if body.Role != types.ROLE_TEACHER && body.Role != types.ROLE_SCHOOL {
		return nil, http.StatusBadRequest, errors.New("role must be either teacher or school")
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))

	hashed, err := utils.HashPassword(body.Password)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	newUser := models.User{
		Name:            body.Name,
		Email:           email,
		Password:        hashed,
		Role:            body.Role,
		Phone:           body.Phone,
		SchoolName:      body.SchoolName,
		SchoolAddress:   body.SchoolAddress,
		Subject:         body.Subject,
		ExperienceYears: body.ExperienceYears,
	}

	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.
			Model(&models.User{}).
			Where("lower(email) = ?", email).
			Count(&count).
			Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.New("an account with this email already exists")
		}
		if err := tx.Create(&newUser).Error; err != nil {
			log.Printf("Error creating user: %s\n", err.Error())
			return fmt.Errorf("error creating user: %s", email)
		}
		return nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil, http.StatusConflict, err
		}
		return nil, http.StatusBadRequest, err
	}

	token, err := utils.GenerateJWT(newUser.Email, newUser.ID, newUser.Role)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return &AuthPayload{Token: token, User: newUser.Projection()}, http.StatusCreated, nil
}

func AuthLogin(ctx *gin.Context) (*AuthPayload, int, error) {
	var body types.LoginRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))

	db := db.GetDb()
	var user models.User
	if err := db.
		Model(&models.User{}).
		Where("lower(email) = ?", email).
		First(&user).
		Error; err != nil {
		// Same message as a wrong password so accounts cannot be enumerated.
		return nil, http.StatusUnauthorized, errors.New("Invalid credentials")
	}
	if user.Password == "" {
		return nil, http.StatusUnauthorized, errors.New("This account uses Google sign-in. Please log in with Google")
	}
	if !utils.CheckPassword(user.Password, body.Password) {
		return nil, http.StatusUnauthorized, errors.New("Invalid credentials")
	}

	token, err := utils.GenerateJWT(user.Email, user.ID, user.Role)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	if rd := lib.GetRedisClient(); rd != nil {
		projection := user.Projection()
		if _, err := rd.JSONSet(ctx, fmt.Sprintf("%d:user", user.ID), "$", &projection).Result(); err != nil {
			log.Printf("[redis] Error updating user cache: %s\n", err.Error())
		}
	}

	return &AuthPayload{Token: token, User: user.Projection()}, http.StatusOK, nil
}

func AuthMe(ctx *gin.Context) (*types.APIResponseUser, int, error) {
	userId := ctx.GetUint("id")
	cacheKey := fmt.Sprintf("%d:user", userId)
	if rd := lib.GetRedisClient(); rd != nil {
		if raw, err := rd.JSONGet(ctx, cacheKey, "$").Result(); err == nil && raw != "" {
			var cached []types.APIResponseUser
			if err := json.Unmarshal([]byte(raw), &cached); err == nil && len(cached) > 0 {
				return &cached[0], http.StatusOK, nil
			}
		}
	}
	db := db.GetDb()
	var user models.User
	if err := db.
		Model(&models.User{}).
		Where(&models.User{ID: userId}).
		First(&user).
		Error; err != nil {
		return nil, http.StatusUnauthorized, errors.New("Not authorized to access this route")
	}
	projection := user.Projection()
	if rd := lib.GetRedisClient(); rd != nil {
		if _, err := rd.JSONSet(ctx, cacheKey, "$", &projection).Result(); err != nil {
			log.Printf("[redis] Error updating user cache: %s\n", err.Error())
		}
	}
	return &projection, http.StatusOK, nil
}

func AuthForgotPassword(ctx *gin.Context) (int, error) {
	var body types.ForgotPasswordRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))

	db := db.GetDb()
	var user models.User
	if err := db.
		Model(&models.User{}).
		Where("lower(email) = ?", email).
		First(&user).
		Error; err != nil {
		return http.StatusNotFound, errors.New("No account found with this email")
	}
	if user.Password == "" && user.GoogleID != "" {
		return http.StatusBadRequest, errors.New("This account uses Google sign-in and has no password to reset")
	}

	plaintext, hashed, err := utils.NewResetToken()
	if err != nil {
		return http.StatusInternalServerError, err
	}
	expires := time.Now().Add(config.ResetTokenTTL)
	if err := db.
		Model(&models.User{}).
		Where(&models.User{ID: user.ID}).
		Updates(map[string]any{
			"reset_password_token":   hashed,
			"reset_password_expires": expires,
		}).Error; err != nil {
		return http.StatusInternalServerError, err
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", config.GetFrontendURL(), plaintext)
	mailErr := lib.GetMailer().Send(&lib.SendMailInput{
		From:     os.Getenv("EMAIL_FROM"),
		FromName: "EduSpace",
		To:       []string{user.Email},
		Subject:  "EduSpace password reset",
		Body:     fmt.Sprintf("You requested a password reset. This link is valid for 15 minutes:\n\n%s\n\nIf you did not request this, you can ignore this email.", resetURL),
	})
	if mailErr != nil {
		log.Printf("Error sending reset email to user [%d]: %s\n", user.ID, mailErr.Error())
		// Roll back the issued token so no stale reset window stays open.
		if err := db.
			Model(&models.User{}).
			Where(&models.User{ID: user.ID}).
			Updates(map[string]any{
				"reset_password_token":   "",
				"reset_password_expires": nil,
			}).Error; err != nil {
			log.Printf("Error clearing reset token for user [%d]: %s\n", user.ID, err.Error())
		}
		return http.StatusInternalServerError, errors.New("Email could not be sent. Please try again")
	}
	return http.StatusOK, nil
}

func AuthResetPassword(ctx *gin.Context) (*AuthPayload, int, error) {
	var params struct {
		Token string `uri:"token" binding:"required"`
	}
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.ResetPasswordRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}

	hashed := utils.HashResetToken(params.Token)
	db := db.GetDb()
	var user models.User
	// One generic message for both a wrong token and an expired one.
	if err := db.
		Model(&models.User{}).
		Where("reset_password_token = ? AND reset_password_expires > ?", hashed, time.Now()).
		First(&user).
		Error; err != nil {
		return nil, http.StatusBadRequest, errors.New("Invalid or expired reset token")
	}

	newHash, err := utils.HashPassword(body.Password)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if err := db.
		Model(&models.User{}).
		Where(&models.User{ID: user.ID}).
		Updates(map[string]any{
			"password":               newHash,
			"reset_password_token":   "",
			"reset_password_expires": nil,
		}).Error; err != nil {
		return nil, http.StatusInternalServerError, err
	}

	token, err := utils.GenerateJWT(user.Email, user.ID, user.Role)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return &AuthPayload{Token: token, User: user.Projection()}, http.StatusOK, nil
}

// OAuthGoogleCallback resolves the Google identity to a local user,
// linking or auto-creating as needed, and returns the frontend redirect
// URL carrying the session token.
func OAuthGoogleCallback(ctx *gin.Context) (string, error) {
	callbackPath := fmt.Sprintf("%s/auth/google/callback", config.GetFrontendURL())
	var query struct {
		Code  string `form:"code" binding:"required"`
		State string `form:"state" binding:"required"`
	}
	if err := ctx.ShouldBindQuery(&query); err != nil {
		return fmt.Sprintf("%s?error=%s", callbackPath, url.QueryEscape("Authentication failed")), err
	}
	// The state must round-trip through the cookie set on the consent leg.
	cookieState, err := ctx.Cookie("oauth_state")
	if err != nil || cookieState == "" || cookieState != query.State {
		return fmt.Sprintf("%s?error=%s", callbackPath, url.QueryEscape("Authentication failed")), errors.New("oauth state mismatch")
	}
	ctx.SetCookie("oauth_state", "", -1, "/", "", false, true)
	info, err := lib.FetchGoogleUserInfo(ctx, query.Code)
	if err != nil {
		log.Printf("Error exchanging oauth code: %s\n", err.Error())
		return fmt.Sprintf("%s?error=%s", callbackPath, url.QueryEscape("Authentication failed")), err
	}

	email := strings.ToLower(info.Email)
	db := db.GetDb()
	var user models.User
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where(&models.User{GoogleID: info.ID}).
			First(&user).
			Error; err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.
			Where("lower(email) = ?", email).
			First(&user).
			Error; err == nil {
			// Link the Google identity to the existing account.
			updates := map[string]any{"google_id": info.ID}
			if user.Avatar == "" && info.Picture != "" {
				updates["avatar"] = info.Picture
				user.Avatar = info.Picture
			}
			user.GoogleID = info.ID
			return tx.
				Model(&models.User{}).
				Where(&models.User{ID: user.ID}).
				Updates(updates).
				Error
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		user = models.User{
			Name:     info.Name,
			Email:    email,
			GoogleID: info.ID,
			Role:     types.ROLE_TEACHER,
			Avatar:   info.Picture,
			Verified: true,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		log.Printf("Error resolving Google identity: %s\n", err.Error())
		return fmt.Sprintf("%s?error=%s", callbackPath, url.QueryEscape("Authentication failed")), err
	}

	token, err := utils.GenerateJWT(user.Email, user.ID, user.Role)
	if err != nil {
		return fmt.Sprintf("%s?error=%s", callbackPath, url.QueryEscape("Authentication failed")), err
	}
	projection := user.Projection()
	userJSON, err := json.Marshal(&projection)
	if err != nil {
		return fmt.Sprintf("%s?error=%s", callbackPath, url.QueryEscape("Authentication failed")), err
	}
	return fmt.Sprintf("%s?token=%s&user=%s", callbackPath, url.QueryEscape(token), url.QueryEscape(string(userJSON))), nil
}
