package identity

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/medirespond/medirespond/internal/platform/auth"
	"github.com/medirespond/medirespond/pkg/apperr"
)

// -- Mock Repository --

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	u.normalize()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperr.Validation("user already exists")
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == NormalizeEmail(email) {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return apperr.NotFound("user not found")
	}
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string) ([]*User, error) {
	var result []*User
	for _, u := range m.users {
		if u.Role == role {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type stubSigner struct{ fail bool }

func (s stubSigner) Issue(userID, role string) (string, error) {
	if s.fail {
		return "", fmt.Errorf("signing failed")
	}
	return "token-" + userID + "-" + role, nil
}

func newTestService() (*Service, *mockUserRepo) {
	repo := newMockUserRepo()
	svc := NewService(repo, stubSigner{}, zerolog.Nop())
	svc.SetBcryptCost(bcrypt.MinCost)
	return svc, repo
}

func validRegistration() *RegisterRequest {
	return &RegisterRequest{
		Name:              "Asha Verma",
		Email:             "Asha.Verma@Example.com",
		Password:          "secret123",
		Phone:             "9000000001",
		Address:           "12 Lake Road",
		Pincode:           "400010",
		Location:          &Location{Lat: 19.07, Lng: 72.87},
		Age:               34,
		Gender:            "Female",
		ChronicConditions: []string{"Asthma"},
		BloodType:         "B+",
		EmergencyContacts: []EmergencyContact{{Name: "Ravi", PhoneNumber: "9000000002", Relationship: "Spouse"}},
	}
}

func TestService_Register(t *testing.T) {
	svc, repo := newTestService()
	resp, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected token")
	}
	if resp.User.Role != auth.RolePatient {
		t.Errorf("expected role patient, got %s", resp.User.Role)
	}
	if resp.User.Email != "asha.verma@example.com" {
		t.Errorf("expected lower-cased email, got %s", resp.User.Email)
	}
	stored := repo.users[resp.User.ID]
	if stored.PasswordHash == "secret123" || stored.PasswordHash == "" {
		t.Error("expected password to be hashed")
	}
	if stored.Allergies == nil {
		t.Error("expected nil lists to be normalized")
	}
}

func TestService_Register_Duplicate(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dup := validRegistration()
	dup.Email = "asha.verma@example.com"
	_, err := svc.Register(context.Background(), dup)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apperr.PublicMessage(err) != "user already exists" {
		t.Errorf("unexpected message: %s", apperr.PublicMessage(err))
	}
}

func TestService_Register_Invalid(t *testing.T) {
	svc, repo := newTestService()
	cases := map[string]func(r *RegisterRequest){
		"missing name":   func(r *RegisterRequest) { r.Name = " " },
		"bad email":      func(r *RegisterRequest) { r.Email = "not-an-email" },
		"short password": func(r *RegisterRequest) { r.Password = "123" },
		"missing phone":  func(r *RegisterRequest) { r.Phone = "" },
		"zero age":       func(r *RegisterRequest) { r.Age = 0 },
		"bad gender":     func(r *RegisterRequest) { r.Gender = "Unknown" },
		"bad blood type": func(r *RegisterRequest) { r.BloodType = "C+" },
		"bad contact":    func(r *RegisterRequest) { r.EmergencyContacts[0].PhoneNumber = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRegistration()
			mutate(req)
			if _, err := svc.Register(context.Background(), req); !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
	if len(repo.users) != 0 {
		t.Errorf("expected no users persisted, got %d", len(repo.users))
	}
}

func TestService_Login(t *testing.T) {
	svc, _ := newTestService()
	reg, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "ASHA.verma@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.User.ID != reg.User.ID {
		t.Errorf("expected user %s, got %s", reg.User.ID, resp.User.ID)
	}
}

func TestService_Login_InvalidCredentials(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, req := range []*LoginRequest{
		{Email: "asha.verma@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "secret123"},
	} {
		_, err := svc.Login(context.Background(), req)
		if !apperr.Is(err, apperr.KindUnauthorized) {
			t.Errorf("expected unauthorized for %s, got %v", req.Email, err)
		}
		if apperr.PublicMessage(err) != "invalid credentials" {
			t.Errorf("unexpected message: %s", apperr.PublicMessage(err))
		}
	}
}

func TestService_Login_MissingFields(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Login(context.Background(), &LoginRequest{Email: "a@b.com"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_Login_SignerFailure(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, stubSigner{fail: true}, zerolog.Nop())
	svc.SetBcryptCost(bcrypt.MinCost)
	_, err := svc.Register(context.Background(), validRegistration())
	if err == nil {
		t.Fatal("expected signer error")
	}
}

func TestService_GetUser_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetUser(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_UpdateProfile(t *testing.T) {
	svc, _ := newTestService()
	reg, _ := svc.Register(context.Background(), validRegistration())

	phone := "9111111111"
	allergies := []string{"Penicillin"}
	u, err := svc.UpdateProfile(context.Background(), reg.User.ID, &UpdateProfileRequest{Phone: &phone, Allergies: &allergies})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Phone != phone {
		t.Errorf("expected phone %s, got %s", phone, u.Phone)
	}
	if len(u.Allergies) != 1 || u.Allergies[0] != "Penicillin" {
		t.Errorf("expected allergies updated, got %v", u.Allergies)
	}
	if u.Name != "Asha Verma" {
		t.Errorf("expected name unchanged, got %s", u.Name)
	}
	if u.Role != auth.RolePatient {
		t.Errorf("expected role unchanged, got %s", u.Role)
	}
}

func TestService_UpdateProfile_Invalid(t *testing.T) {
	svc, _ := newTestService()
	reg, _ := svc.Register(context.Background(), validRegistration())

	bad := "ZZ"
	_, err := svc.UpdateProfile(context.Background(), reg.User.ID, &UpdateProfileRequest{BloodType: &bad})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_SeedAndListDoctors(t *testing.T) {
	svc, _ := newTestService()
	n, err := svc.SeedDoctors(context.Background(), DefaultDoctors, DefaultSeedPassword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(DefaultDoctors) {
		t.Errorf("expected %d doctors created, got %d", len(DefaultDoctors), n)
	}

	// A second run is a no-op.
	n, err = svc.SeedDoctors(context.Background(), DefaultDoctors, DefaultSeedPassword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 doctors created on re-seed, got %d", n)
	}

	doctors, err := svc.ListDoctors(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doctors) != len(DefaultDoctors) {
		t.Fatalf("expected %d doctors, got %d", len(DefaultDoctors), len(doctors))
	}
	if doctors[0].Name != "Dr. Anita Desai" {
		t.Errorf("expected doctors sorted by name, first is %s", doctors[0].Name)
	}

	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "priya.sharma@hospital.com", Password: DefaultSeedPassword})
	if err != nil {
		t.Fatalf("seeded doctor cannot log in: %v", err)
	}
	if !resp.User.IsDoctor() || resp.User.Department != "Cardiology" {
		t.Errorf("unexpected seeded doctor: %+v", resp.User)
	}
}
