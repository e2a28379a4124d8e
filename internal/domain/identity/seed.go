package identity

import (
	"context"

	"github.com/medirespond/medirespond/internal/platform/auth"
	"github.com/medirespond/medirespond/pkg/apperr"
)

// SeedDoctor describes a doctor account created by the seed command.
type SeedDoctor struct {
	Name       string
	Email      string
	Department string
	Phone      string
	Address    string
	Pincode    string
	Age        int
	Gender     string
}

// DefaultSeedPassword is the initial password of every seeded doctor.
const DefaultSeedPassword = "doctor123"

var DefaultDoctors = []SeedDoctor{
	{"Dr. Priya Sharma", "priya.sharma@hospital.com", "Cardiology", "9876543210", "123 Medical Center Road", "400001", 35, "Female"},
	{"Dr. Rajesh Patel", "rajesh.patel@hospital.com", "Neurology", "9876543211", "456 Hospital Street", "400002", 42, "Male"},
	{"Dr. Anita Desai", "anita.desai@hospital.com", "Pediatrics", "9876543212", "789 Healthcare Avenue", "400003", 38, "Female"},
	{"Dr. Suresh Kumar", "suresh.kumar@hospital.com", "Orthopedics", "9876543213", "321 Doctor's Lane", "400004", 45, "Male"},
	{"Dr. Meera Reddy", "meera.reddy@hospital.com", "Gynecology", "9876543214", "654 Medical Plaza", "400005", 40, "Female"},
}

// SeedDoctors creates the given doctors, skipping any whose email is already
// registered. It returns the number created.
func (s *Service) SeedDoctors(ctx context.Context, doctors []SeedDoctor, password string) (int, error) {
	created := 0
	for _, d := range doctors {
		_, err := s.users.GetByEmail(ctx, d.Email)
		if err == nil {
			s.logger.Info().Str("email", d.Email).Msg("doctor already exists, skipping")
			continue
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return created, apperr.Wrap(err, "lookup doctor")
		}

		hash, err := s.hash(password)
		if err != nil {
			return created, err
		}
		u := &User{
			Name:         d.Name,
			Email:        d.Email,
			PasswordHash: hash,
			Phone:        d.Phone,
			Address:      d.Address,
			Pincode:      d.Pincode,
			Age:          d.Age,
			Gender:       d.Gender,
			Role:         auth.RoleDoctor,
			Department:   d.Department,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return created, apperr.Wrap(err, "create doctor")
		}
		s.logger.Info().Str("email", d.Email).Str("department", d.Department).Msg("doctor added")
		created++
	}
	return created, nil
}
