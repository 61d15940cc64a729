package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ValenBorras/nutritional-coach-sub001/internal/model"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/database"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/utils/jwt"
)

type ConnectKeyInput struct {
	Token string `json:"token" validate:"required"`
}

var (
	errKeyNotFound      = errors.New("patient key not found")
	errKeyAlreadyUsed   = errors.New("patient key already used")
	errAlreadyConnected = errors.New("patient already connected")
)

// generateKeyToken produces a short pairing code, retrying until it does
// not collide with an existing key.
func generateKeyToken(db *gorm.DB) (string, error) {
	for {
		raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
		token := "NG-" + raw[:10]

		var count int64
		if err := db.Model(&model.PatientKey{}).Where("token = ?", token).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return token, nil
		}
	}
}

// GeneratePatientKey creates a new single-use pairing token for the
// authenticated nutritionist.
func GeneratePatientKey(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	token, err := generateKeyToken(db)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not generate patient key")
	}

	key := model.PatientKey{
		NutritionistID: claims.UserID,
		Token:          token,
	}
	if err := db.Create(&key).Error; err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not save patient key")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         key.ID,
		"token":      key.Token,
		"created_at": key.CreatedAt,
	})
}

// ListPatientKeys returns the nutritionist's own keys, newest first.
func ListPatientKeys(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var keys []model.PatientKey
	if err := database.GetDB().
		Where("nutritionist_id = ?", claims.UserID).
		Order("created_at DESC").
		Find(&keys).Error; err != nil {
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not fetch patient keys")
	}

	return c.JSON(keys)
}

// ConnectPatientKey consumes a pairing token and binds the patient to the
// issuing nutritionist. The whole step runs in one transaction, so a
// failure on the user update rolls the key back to unused.
func ConnectPatientKey(c *fiber.Ctx) error {
	input := new(ConnectKeyInput)
	if err := c.BodyParser(input); err != nil || input.Token == "" {
		return errJSON(c, fiber.StatusBadRequest, CodeInvalidInput, "token is required")
	}

	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	var nutritionistID uint
	err := db.Transaction(func(tx *gorm.DB) error {
		var key model.PatientKey
		if err := tx.Where("token = ?", input.Token).First(&key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errKeyNotFound
			}
			return err
		}
		if key.Used {
			return errKeyAlreadyUsed
		}

		var patient model.User
		if err := tx.First(&patient, claims.UserID).Error; err != nil {
			return err
		}
		if patient.NutritionistID != nil {
			return errAlreadyConnected
		}

		now := time.Now()
		key.Used = true
		key.UsedAt = &now
		key.PatientID = &patient.ID
		if err := tx.Save(&key).Error; err != nil {
			return err
		}

		patient.NutritionistID = &key.NutritionistID
		if err := tx.Save(&patient).Error; err != nil {
			return err
		}

		nutritionistID = key.NutritionistID
		return nil
	})

	switch {
	case err == nil:
		return c.JSON(fiber.Map{
			"message":         "Connected to nutritionist",
			"nutritionist_id": nutritionistID,
		})
	case errors.Is(err, errKeyNotFound):
		return errJSON(c, fiber.StatusNotFound, CodeNotFound, "Patient key not found")
	case errors.Is(err, errKeyAlreadyUsed):
		return errJSON(c, fiber.StatusBadRequest, CodeKeyAlreadyUsed, "This patient key has already been used")
	case errors.Is(err, errAlreadyConnected):
		return errJSON(c, fiber.StatusBadRequest, CodeAlreadyConnected, "You are already connected to a nutritionist")
	default:
		return errJSON(c, fiber.StatusInternalServerError, CodeInternalError, "Could not connect patient key")
	}
}
