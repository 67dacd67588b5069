package dashboard

import (
	"fmt"
	"math/rand"
	"time"
)

const MockComplaintCount = 50

// ProvinceCenters are the approximate coordinate centres used to place mock complaints.
var ProvinceCenters = map[string]GPSLocation{
	"Western":       {Latitude: 6.9271, Longitude: 79.8612},
	"Central":       {Latitude: 7.2906, Longitude: 80.6337},
	"Southern":      {Latitude: 6.0535, Longitude: 80.2210},
	"Northern":      {Latitude: 9.6615, Longitude: 80.0255},
	"Eastern":       {Latitude: 7.7310, Longitude: 81.6747},
	"North Western": {Latitude: 7.7580, Longitude: 80.1875},
	"North Central": {Latitude: 8.3114, Longitude: 80.4037},
	"Uva":           {Latitude: 6.8844, Longitude: 81.0567},
	"Sabaragamuwa":  {Latitude: 6.7056, Longitude: 80.3847},
}

var (
	mockBusPrefixes   = []string{"NA", "NB", "NC", "WP", "EP", "SP", "CP", "NW", "SG"}
	mockPassengerName = []string{
		"Kamal Perera", "Nimal Fernando", "Sunethra Silva", "Amara Jayawardena",
		"Ruwan Bandara", "Dilani Kumari", "Priya Rajapaksa", "Asanka Gunawardena",
		"Tharushi Mendis", "Chamara Wijesinghe", "Lakmal Rathnayake", "Sanduni Herath",
		"Nuwan Dissanayake", "Malini Samarasinghe", "Janaka Weerasinghe", "Himali Gunathilaka",
		"Rohitha Wickramasinghe", "Gayani Abeykoon", "Saman Kumara", "Pavithra Nanayakkara",
		"Dinesh Ratnayake", "Iresha Karunanayake", "Chathura Liyanage", "Nadeesha Jayasuriya",
		"Mahinda Ekanayake", "Rashmi Weerakoon", "Lahiru Thilakarathne", "Anusha Seneviratne",
		"Kasun Madushanka", "Dilhara Pathirana", "Thilina Jayasinghe", "Samanthi Wickremasinghe",
		"Buddhika Palliyaguru", "Chathurika Ranaweera", "Isuru Priyadarshana", "Nadeeka Gamage",
		"Charith Asalanka", "Kumudini Rajapakse", "Sachith Pathirana", "Hasini Perera",
		"Dimuthu Attanayake", "Oshadi Hewavitharana", "Ruwanga Samarawickrama", "Nisansala Kumari",
		"Ashan Priyadarshana", "Dilrukshi Rajakaruna", "Thushara Jayathilaka", "Rasika Perera",
		"Ishara Madushan", "Pathumi Karunaratne",
	}
	mockDescriptions = map[string]string{
		"Reckless driving":          "The bus driver was driving very fast and overtaking dangerously on a narrow road.",
		"Harassment":                "The conductor was verbally harassing a female passenger regarding the fare.",
		"Overloading":               "The bus had far more passengers than capacity, people were hanging out of the door.",
		"Overcharging":              "The conductor charged Rs. 80 for a route that should cost Rs. 45.",
		"Not issuing tickets":       "No ticket was issued after collecting the fare from passengers.",
		"Not giving correct change": "The conductor kept Rs. 20 extra and refused to return the change.",
		"Skipping stops":            "The bus skipped 3 designated bus stops without stopping.",
		"Rude behavior":             "The conductor was very rude when asked about the route, using offensive language.",
		"Loud music":                "Extremely loud music was playing in the bus causing discomfort to passengers.",
	}
)

const mockEvidenceURL = "https://placehold.co/400x300?text=Evidence+Photo"

// GenerateMock builds the synthetic complaint set shown when no live data is wired.
// The same rng seed and now always produce the same complaints.
func GenerateMock(rng *rand.Rand, now time.Time) []Complaint {
	complaints := make([]Complaint, 0, MockComplaintCount)
	for i := 0; i < MockComplaintCount; i++ {
		province := Provinces[i%len(Provinces)]
		category := Categories[i%len(Categories)]
		status := Statuses[i%len(Statuses)]
		submitted := now.AddDate(0, 0, -rng.Intn(30))

		c := Complaint{
			ID:                fmt.Sprintf("CMP-%04d", i+1),
			PassengerName:     mockPassengerName[i%len(mockPassengerName)],
			BusNumber:         fmt.Sprintf("%s-%d", mockBusPrefixes[i%len(mockBusPrefixes)], 1000+rng.Intn(9000)),
			ViolationCategory: category,
			Priority:          CategoryPriority[category],
			Status:            status,
			Province:          province,
			Description:       mockDescriptions[category],
			SubmittedAt:       submitted,
		}
		if i%3 != 0 {
			c.RouteNumber = fmt.Sprintf("%d", rng.Intn(400)+1)
		}
		if i%4 == 0 {
			c.EvidenceURLs = []string{mockEvidenceURL}
		}
		if i%5 != 0 {
			center := ProvinceCenters[province]
			c.GPSLocation = &GPSLocation{
				Latitude:  center.Latitude + (rng.Float64()-0.5)*0.5,
				Longitude: center.Longitude + (rng.Float64()-0.5)*0.5,
			}
		}
		if status != StatusPending {
			updated := submitted.Add(24 * time.Hour)
			c.UpdatedAt = &updated
		}
		complaints = append(complaints, c)
	}
	return complaints
}
