package controller

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ValenBorras/nutritional-coach-sub001/internal/model"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/database"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/utils/jwt"
)

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=patient nutritionist"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// generateHandle makes a URL-friendly unique handle from the user's name.
func generateHandle(db *gorm.DB, name string) string {
	base := slug.Make(name)
	if base == "" {
		base = "user"
	}

	handle := base
	for i := 2; ; i++ {
		var count int64
		db.Model(&model.User{}).Where("handle = ?", handle).Count(&count)
		if count == 0 {
			return handle
		}
		handle = fmt.Sprintf("%s-%d", base, i)
	}
}

func Register(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid input")
	}

	if input.Email == "" || input.Password == "" || input.Name == "" {
		return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "email, password and name are required")
	}
	if input.Role != model.RolePatient && input.Role != model.RoleNutritionist {
		return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "role must be patient or nutritionist")
	}

	var existingUser model.User
	if err := database.GetDB().Where("email = ?", input.Email).First(&existingUser).Error; err == nil {
		return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "Email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not hash password")
	}

	user := model.User{
		Email:    input.Email,
		Password: string(hashedPassword),
		Name:     input.Name,
		Handle:   generateHandle(database.GetDB(), input.Name),
		Role:     input.Role,
	}

	if err := database.GetDB().Create(&user).Error; err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not create user")
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not generate token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful",
		"token":   token,
		"user":    user.GetPublicProfile(),
	})
}

func Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "Invalid input")
	}

	var user model.User
	if err := database.GetDB().Where("email = ?", input.Email).First(&user).Error; err != nil {
		return errJSON(c, fiber.StatusUnauthorized, CodeUnauthenticated, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return errJSON(c, fiber.StatusUnauthorized, CodeUnauthenticated, "Invalid credentials")
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not generate token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":     user.ID,
			"email":  user.Email,
			"name":   user.Name,
			"role":   user.Role,
			"handle": user.Handle,
		},
	})
}

// GetMe returns the authenticated user's profile.
func GetMe(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errJSON(c, fiber.StatusNotFound, CodeNotFound, "User not found")
		}
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not fetch user")
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":              user.ID,
			"email":           user.Email,
			"name":            user.Name,
			"handle":          user.Handle,
			"role":            user.Role,
			"nutritionist_id": user.NutritionistID,
			"created_at":      user.CreatedAt,
		},
	})
}
