package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"carebridge/middleware"
	"carebridge/models"
	"carebridge/pkg/config"
	tokenstore "carebridge/pkg/token"
	"carebridge/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func issueToken(user *models.User) (string, error) {
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"sub":  strconv.Itoa(int(user.ID)),
		"role": user.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"jti":  jti,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret))
}

// Register handler
func Register(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Name            string `json:"name"`
			Email           string `json:"email"`
			Password        string `json:"password"`
			ConfirmPassword string `json:"confirm_password"`
			Role            string `json:"role"`
			Mobile          string `json:"mobile"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}

		name := strings.TrimSpace(body.Name)
		email := strings.TrimSpace(strings.ToLower(body.Email))
		password := body.Password

		if name == "" || email == "" || password == "" || body.ConfirmPassword == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Name, email, password, and confirm password are required"})
			return
		}
		if password != body.ConfirmPassword {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Passwords do not match"})
			return
		}
		// password validation: at least one letter and one number
		if !utils.HasLetter(password) || !utils.HasNumber(password) {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Password must contain at least one letter and one number"})
			return
		}

		role := body.Role
		if role == "" {
			role = models.RolePatient
		}
		if role != models.RolePatient && role != models.RoleDoctor {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "role must be patient or doctor"})
			return
		}

		var exists models.User
		if err := db.Where("email = ?", email).First(&exists).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"msg": "Email already exists"})
			return
		} else if err != gorm.ErrRecordNotFound {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		user := models.User{Name: name, Email: email, Role: role, Mobile: body.Mobile}
		if err := user.SetPassword(password); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to set password"})
			return
		}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to create user"})
			return
		}

		tokenStr, err := issueToken(&user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to create token"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token": tokenStr,
			"user_id":      user.ID,
			"name":         user.Name,
			"role":         user.Role,
		})
	}
}

// Login handler
func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}
		email := strings.TrimSpace(strings.ToLower(body.Email))
		if email == "" || body.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Email and password are required"})
			return
		}

		var user models.User
		if err := db.Where("email = ?", email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "Invalid credentials"})
			return
		}
		if !user.CheckPassword(body.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "Invalid credentials"})
			return
		}

		tokenStr, err := issueToken(&user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to create token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token": tokenStr,
			"user_id":      user.ID,
			"name":         user.Name,
			"role":         user.Role,
		})
	}
}

// Logout handler
func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		jti, _ := c.Get(middleware.ContextJTIKey)
		if s, ok := jti.(string); ok && s != "" {
			tokenstore.RevokeToken(s)
		}
		c.JSON(http.StatusOK, gin.H{"msg": "logged out"})
	}
}

// Me returns the authenticated user's identity.
func Me(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uidRaw, _ := c.Get(middleware.ContextUserIDKey)
		uid, _ := strconv.Atoi(uidRaw.(string))

		var user models.User
		if err := db.First(&user, uid).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "User not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":     user.ID,
			"name":   user.Name,
			"email":  user.Email,
			"role":   user.Role,
			"mobile": user.Mobile,
		})
	}
}
