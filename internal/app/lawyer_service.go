package app

import (
	"errors"
	"math"
	"sort"
	"strings"

	"casecounsel/internal/model"
	"casecounsel/internal/repository"
)

var (
	ErrLawyerNotFound = errors.New("lawyer not found")
	ErrNotLawyer      = errors.New("user does not have the lawyer role")
)

type LawyerService struct {
	lawyerRepo *repository.LawyerRepository
	userRepo   *repository.UserRepository
}

func NewLawyerService(lawyerRepo *repository.LawyerRepository, userRepo *repository.UserRepository) *LawyerService {
	return &LawyerService{lawyerRepo: lawyerRepo, userRepo: userRepo}
}

type LawyerProfileInput struct {
	UserID          uint
	Name            string
	Specialty       string
	City            string
	Latitude        float64
	Longitude       float64
	YearsExperience int
	Bio             string
}

// UpsertProfile creates or updates the profile owned by the user. Only
// users with the lawyer role may have one.
func (s *LawyerService) UpsertProfile(input LawyerProfileInput) (*model.Lawyer, error) {
	if input.UserID == 0 || strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Specialty) == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Role != model.RoleLawyer {
		return nil, ErrNotLawyer
	}

	lawyer, err := s.lawyerRepo.GetByUserID(input.UserID)
	if err != nil {
		return nil, err
	}
	if lawyer == nil {
		lawyer = &model.Lawyer{UserID: input.UserID}
	}

	lawyer.Name = strings.TrimSpace(input.Name)
	lawyer.Specialty = strings.TrimSpace(input.Specialty)
	lawyer.City = strings.TrimSpace(input.City)
	lawyer.Latitude = input.Latitude
	lawyer.Longitude = input.Longitude
	lawyer.YearsExperience = input.YearsExperience
	lawyer.Bio = strings.TrimSpace(input.Bio)

	if lawyer.ID == 0 {
		err = s.lawyerRepo.Create(lawyer)
	} else {
		err = s.lawyerRepo.Update(lawyer)
	}
	if err != nil {
		return nil, err
	}
	return lawyer, nil
}

func (s *LawyerService) Get(id uint) (*model.Lawyer, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	lawyer, err := s.lawyerRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if lawyer == nil {
		return nil, ErrLawyerNotFound
	}
	return lawyer, nil
}

// Search matches free text against name and specialty, optionally narrowed
// by city.
func (s *LawyerService) Search(q, city string, limit int) ([]model.Lawyer, error) {
	return s.lawyerRepo.Search(strings.TrimSpace(q), strings.TrimSpace(city), limit)
}

// NearbyLawyer pairs a profile with its distance from the query point.
type NearbyLawyer struct {
	model.Lawyer
	DistanceKM float64 `json:"distance_km"`
}

// Nearby returns lawyers within radiusKM of (lat, lng), closest first. A
// coarse bounding box narrows the candidate set before exact distances.
func (s *LawyerService) Nearby(lat, lng, radiusKM float64, limit int) ([]NearbyLawyer, error) {
	if radiusKM <= 0 || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = 20
	}

	latDelta := radiusKM / 111.0
	lngDelta := radiusKM / (111.0 * math.Cos(lat*math.Pi/180))
	if math.IsInf(lngDelta, 0) || math.IsNaN(lngDelta) {
		lngDelta = 180
	}

	candidates, err := s.lawyerRepo.ListInBoundingBox(lat-latDelta, lat+latDelta, lng-lngDelta, lng+lngDelta)
	if err != nil {
		return nil, err
	}

	var nearby []NearbyLawyer
	for _, l := range candidates {
		d := haversineKM(lat, lng, l.Latitude, l.Longitude)
		if d <= radiusKM {
			nearby = append(nearby, NearbyLawyer{Lawyer: l, DistanceKM: d})
		}
	}
	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].DistanceKM != nearby[j].DistanceKM {
			return nearby[i].DistanceKM < nearby[j].DistanceKM
		}
		return nearby[i].ID < nearby[j].ID
	})
	if len(nearby) > limit {
		nearby = nearby[:limit]
	}
	return nearby, nil
}

const earthRadiusKM = 6371.0

func haversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}
