package sms

import (
	"strings"

	"github.com/Spok95/school-office/internal/models"
)

// Packages: пакеты SMS для покупки через онлайн-оплату.
var Packages = []models.SMSPackage{
	{Code: "starter", Count: 500, Price: 200},
	{Code: "standard", Count: 2000, Price: 700},
	{Code: "premium", Count: 10000, Price: 3000},
}

func FindPackage(code string) (models.SMSPackage, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, p := range Packages {
		if p.Code == code {
			return p, true
		}
	}
	return models.SMSPackage{}, false
}
