package seed

import (
	"log"

	"gorm.io/gorm"

	"github.com/ValenBorras/nutritional-coach-sub001/internal/model"
)

func SeedPlans(db *gorm.DB) {
	plans := []model.Plan{
		{
			Name:            "Patient Monthly",
			Description:     "Full access for patients, billed monthly",
			Price:           14.99,
			Interval:        "month",
			UserType:        model.RolePatient,
			TrialDays:       15,
			StripeProductID: "prod_test_patient",
			StripePriceID:   "price_test_patient_monthly",
			Active:          true,
		},
		{
			Name:            "Nutritionist Starter",
			Description:     "For nutritionists with up to 20 patients",
			Price:           29.99,
			Interval:        "month",
			UserType:        model.RoleNutritionist,
			StripeProductID: "prod_test_nutri_starter",
			StripePriceID:   "price_test_nutri_starter",
			Active:          true,
		},
		{
			Name:            "Nutritionist Pro",
			Description:     "For established practices, unlimited patients",
			Price:           59.99,
			Interval:        "month",
			UserType:        model.RoleNutritionist,
			StripeProductID: "prod_test_nutri_pro",
			StripePriceID:   "price_test_nutri_pro",
			Active:          true,
		},
	}

	for _, plan := range plans {
		result := db.FirstOrCreate(&plan, model.Plan{Name: plan.Name})
		if result.Error != nil {
			log.Printf("Error creating plan %s: %v", plan.Name, result.Error)
		}
	}

	log.Println("Subscription plans seeded successfully!")
}
