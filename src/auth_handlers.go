package main

import (
	"eduspace/src/controllers"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// guestAuthRoutes are reachable without a token.
func guestAuthRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	auth := apiv1.Group("/auth")
	auth.
		POST("/register", func(ctx *gin.Context) {
			payload, status, err := controllers.AuthRegister(ctx)
			if err != nil {
				log.Printf("Error on AuthRegister: %s\n", err.Error())
				ctx.JSON(status, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(status, gin.H{"success": true, "token": payload.Token, "user": payload.User})
		}).
		POST("/login", func(ctx *gin.Context) {
			payload, status, err := controllers.AuthLogin(ctx)
			if err != nil {
				log.Printf("Error on AuthLogin: %s\n", err.Error())
				ctx.JSON(status, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(status, gin.H{"success": true, "token": payload.Token, "user": payload.User})
		}).
		POST("/forgot-password", func(ctx *gin.Context) {
			status, err := controllers.AuthForgotPassword(ctx)
			if err != nil {
				log.Printf("Error on AuthForgotPassword: %s\n", err.Error())
				ctx.JSON(status, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(status, gin.H{"success": true, "message": "Reset email sent"})
		}).
		PUT("/reset-password/:token", func(ctx *gin.Context) {
			payload, status, err := controllers.AuthResetPassword(ctx)
			if err != nil {
				log.Printf("Error on AuthResetPassword: %s\n", err.Error())
				ctx.JSON(status, gin.H{"success": false, "message": err.Error()})
				return
			}
			ctx.JSON(status, gin.H{"success": true, "token": payload.Token, "user": payload.User})
		}).
		GET("/google", func(ctx *gin.Context) {
			state := uuid.NewString()
			ctx.SetCookie("oauth_state", state, 600, "/", "", false, true)
			ctx.Redirect(http.StatusTemporaryRedirect, googleOauthRedirect(state))
		}).
		GET("/google/callback", func(ctx *gin.Context) {
			redirect, err := controllers.OAuthGoogleCallback(ctx)
			if err != nil {
				log.Printf("Error on OAuthGoogleCallback: %s\n", err.Error())
			}
			ctx.Redirect(http.StatusTemporaryRedirect, redirect)
		})
	return apiv1
}

// sessionRoutes require an authenticated caller.
func sessionRoutes(g *gin.RouterGroup) *gin.RouterGroup {
	g.GET("/auth/me", func(ctx *gin.Context) {
		user, status, err := controllers.AuthMe(ctx)
		if err != nil {
			ctx.JSON(status, gin.H{"success": false, "message": err.Error()})
			return
		}
		ctx.JSON(status, gin.H{"success": true, "user": user})
	})
	return g
}
