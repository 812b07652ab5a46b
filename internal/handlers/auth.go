package handlers

import (
	"net/http"

	"newsline/internal/db"
	"newsline/internal/models"
	"newsline/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// SignupForm carries the required identity fields; validation rejects the
// request before anything is persisted.
type SignupForm struct {
	Email     string `form:"email" binding:"required,email"`
	Username  string `form:"username" binding:"required,min=3,max=30"`
	FirstName string `form:"first_name" binding:"required,max=50"`
	LastName  string `form:"last_name" binding:"required,max=50"`
	Password  string `form:"password" binding:"required,min=6"`
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	Render(c, http.StatusOK, "auth/signup.html", nil)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form SignupForm
	if err := c.ShouldBind(&form); err != nil {
		Render(c, http.StatusBadRequest, "auth/signup.html", gin.H{
			"Error": "Please fill in all required fields: a valid email, username, first and last name, and a password of at least 6 characters.",
		})
		return
	}

	hash, err := utils.HashPassword(form.Password)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not process your registration.")
		return
	}

	user := models.User{
		Email:     form.Email,
		Username:  form.Username,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Password:  hash,
		Role:      models.RoleReader,
		IsActive:  true,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		Render(c, http.StatusConflict, "auth/signup.html", gin.H{
			"Error": "That email or username is already registered.",
		})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/login.html", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	var user models.User
	if err := db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{"Error": "Unknown email or wrong password."})
		return
	}
	if !user.IsActive || !utils.CheckPassword(user.Password, password) {
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{"Error": "Unknown email or wrong password."})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/")
}
