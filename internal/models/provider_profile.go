// internal/models/provider_profile.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceCategories is the fixed catalog shown on the public listing.
var ServiceCategories = []string{
	"Abogado", "Albañil", "Arquitecto", "Barbero", "Carpintero",
	"Cerrajero", "Chef a domicilio", "Chofer privado", "Clases de idiomas",
	"Clases de música", "Clases particulares", "Contador", "Electricista",
	"Enfermero(a)", "Fumigador", "Herrero", "Ingeniero", "Jardinero",
	"Lavado de autos", "Limpieza de casas", "Limpieza de oficinas",
	"Manicurista", "Maquillador", "Masajista", "Mecánico", "Mesonero",
	"Motorizado / Delivery", "Mudanzas", "Niñera", "Organización de eventos",
	"Paseador de perros", "Peluquero", "Pintor", "Plomero", "Repostero",
	"Servicios de sistemas", "Servicios digitales", "Servicios electrónica",
	"Técnico de aire acondicionado", "Adiestrador canino",
	"Cuidador de adultos mayores",
}

type ProviderProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Category           string `gorm:"type:varchar(80);index" json:"category"`
	ServiceTitle       string `gorm:"type:varchar(150)" json:"service_title"`
	ServiceDescription string `gorm:"type:text" json:"service_description"`
	ServiceImageURL    string `gorm:"type:text" json:"service_image_url"`

	// USD, the provider's advertised base rate. The actual contract rate is
	// whatever the provider offers during negotiation.
	Rate float64 `json:"rate"`

	// Denormalized from feedback rows so the public listing stays cheap.
	StarRating float64 `gorm:"default:0" json:"star_rating"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
