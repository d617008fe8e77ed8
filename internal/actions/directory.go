package actions

// Monastery is a search candidate.
type Monastery struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	Description   string   `json:"description"`
	Features      []string `json:"features"`
	Rating        float64  `json:"rating"`
	Distance      float64  `json:"distance"`
	Images        []string `json:"images"`
	VisitingHours string   `json:"visitingHours"`
	EntryFee      float64  `json:"entryFee"`
	Highlights    []string `json:"highlights"`
}

type Event struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Monastery   string   `json:"monastery"`
	MonasteryID string   `json:"monasteryId"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Price       float64  `json:"price"`
	Duration    string   `json:"duration"`
	Capacity    int      `json:"capacity"`
	Highlights  []string `json:"highlights"`
}

type Preferences struct {
	Language            string   `json:"language"`
	Notifications       bool     `json:"notifications"`
	FavoriteMonasteries []string `json:"favoriteMonasteries"`
	Interests           []string `json:"interests"`
	TravelStyle         string   `json:"travelStyle"`
	Budget              string   `json:"budget"`
}

type BookingSummary struct {
	ID      string `json:"id"`
	EventID string `json:"eventId"`
	Date    string `json:"date"`
	Status  string `json:"status"`
	Type    string `json:"type"`
}

type UserProfile struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	JoinDate    string           `json:"joinDate"`
	Preferences *Preferences     `json:"preferences,omitempty"`
	Bookings    []BookingSummary `json:"bookings,omitempty"`
}

// Directory supplies the read-only data the catalog handlers work against.
// A production deployment backs this with the booking and content services;
// implementations must be safe for concurrent reads and must not mutate the
// slices they hand out.
type Directory interface {
	Monasteries() []Monastery
	Events() []Event
	Profile() UserProfile
}

// StaticDirectory serves the built-in sample data.
type StaticDirectory struct{}

func (StaticDirectory) Monasteries() []Monastery { return sampleMonasteries }

func (StaticDirectory) Events() []Event { return sampleEvents }

func (StaticDirectory) Profile() UserProfile { return sampleProfile }

var sampleMonasteries = []Monastery{
	{
		ID:            "rumtek",
		Name:          "Rumtek Monastery",
		Location:      "Gangtok",
		Description:   "Famous for its golden stupa and traditional architecture",
		Features:      []string{"AR", "VR", "360", "Guided Tour"},
		Rating:        4.8,
		Distance:      0,
		Images:        []string{"rumtek1.jpg", "rumtek2.jpg"},
		VisitingHours: "6:00 AM - 6:00 PM",
		Highlights:    []string{"Golden Stupa", "Karma Shri Nalanda Institute", "Tse-Chu Festival"},
	},
	{
		ID:            "pemayangtse",
		Name:          "Pemayangtse Monastery",
		Location:      "West Sikkim",
		Description:   "Ancient monastery with beautiful murals",
		Features:      []string{"AR", "360", "Guided Tour"},
		Rating:        4.6,
		Distance:      120,
		Images:        []string{"pemayangtse1.jpg", "pemayangtse2.jpg"},
		VisitingHours: "7:00 AM - 5:00 PM",
		Highlights:    []string{"Ancient Murals", "Peaceful Gardens", "Mountain Views"},
	},
	{
		ID:            "tashiding",
		Name:          "Tashiding Monastery",
		Location:      "West Sikkim",
		Description:   "Sacred monastery with stunning views",
		Features:      []string{"VR", "360", "Guided Tour"},
		Rating:        4.7,
		Distance:      150,
		Images:        []string{"tashiding1.jpg", "tashiding2.jpg"},
		VisitingHours: "6:30 AM - 5:30 PM",
		Highlights:    []string{"Sacred Stupa", "Mountain Views", "Peaceful Atmosphere"},
	},
	{
		ID:            "enchey",
		Name:          "Enchey Monastery",
		Location:      "Gangtok",
		Description:   "Peaceful monastery with beautiful gardens",
		Features:      []string{"AR", "360"},
		Rating:        4.5,
		Distance:      5,
		Images:        []string{"enchey1.jpg"},
		VisitingHours: "6:00 AM - 6:00 PM",
		Highlights:    []string{"Beautiful Gardens", "Peaceful Environment", "City Views"},
	},
	{
		ID:            "labrang",
		Name:          "Labrang Monastery",
		Location:      "East Sikkim",
		Description:   "Traditional monastery with cultural significance",
		Features:      []string{"360", "Guided Tour"},
		Rating:        4.4,
		Distance:      80,
		Images:        []string{"labrang1.jpg"},
		VisitingHours: "7:00 AM - 6:00 PM",
		Highlights:    []string{"Cultural Heritage", "Traditional Architecture", "Local Community"},
	},
}

var sampleEvents = []Event{
	{
		ID:          "festival_1",
		Name:        "Losar Festival",
		Monastery:   "Rumtek",
		MonasteryID: "rumtek",
		Date:        "2024-02-10",
		Time:        "6:00 AM",
		Description: "Tibetan New Year celebration with traditional dances",
		Type:        "festival",
		Duration:    "3 days",
		Capacity:    500,
		Highlights:  []string{"Traditional Dances", "Cultural Performances", "Community Gathering"},
	},
	{
		ID:          "festival_2",
		Name:        "Saga Dawa",
		Monastery:   "Pemayangtse",
		MonasteryID: "pemayangtse",
		Date:        "2024-05-15",
		Time:        "5:00 AM",
		Description: "Buddha's birth, enlightenment, and parinirvana",
		Type:        "ceremony",
		Duration:    "1 day",
		Capacity:    200,
		Highlights:  []string{"Religious Ceremony", "Prayer Flags", "Community Participation"},
	},
	{
		ID:          "festival_3",
		Name:        "Tsechu Festival",
		Monastery:   "Tashiding",
		MonasteryID: "tashiding",
		Date:        "2024-08-20",
		Time:        "9:00 AM",
		Description: "Masked dance festival celebrating Guru Padmasambhava",
		Type:        "festival",
		Duration:    "2 days",
		Capacity:    300,
		Highlights:  []string{"Masked Dances", "Religious Rituals", "Cultural Heritage"},
	},
	{
		ID:          "workshop_1",
		Name:        "Meditation Workshop",
		Monastery:   "Rumtek",
		MonasteryID: "rumtek",
		Date:        "2024-03-15",
		Time:        "10:00 AM",
		Description: "Learn basic meditation techniques",
		Type:        "workshop",
		Price:       500,
		Duration:    "2 hours",
		Capacity:    20,
		Highlights:  []string{"Guided Meditation", "Breathing Techniques", "Mindfulness"},
	},
	{
		ID:          "tour_1",
		Name:        "Heritage Walk",
		Monastery:   "Pemayangtse",
		MonasteryID: "pemayangtse",
		Date:        "2024-04-10",
		Time:        "8:00 AM",
		Description: "Guided tour of monastery history and architecture",
		Type:        "tour",
		Price:       200,
		Duration:    "1.5 hours",
		Capacity:    15,
		Highlights:  []string{"Historical Tour", "Architecture", "Cultural Insights"},
	},
}

var sampleProfile = UserProfile{
	ID:       "user_123",
	Name:     "Monastery Explorer",
	Email:    "explorer@monastery360.com",
	Phone:    "+91-9876543210",
	JoinDate: "2024-01-15",
	Preferences: &Preferences{
		Language:            "en",
		Notifications:       true,
		FavoriteMonasteries: []string{"rumtek", "pemayangtse"},
		Interests:           []string{"Buddhism", "Architecture", "Culture", "Photography"},
		TravelStyle:         "Cultural",
		Budget:              "moderate",
	},
	Bookings: []BookingSummary{
		{ID: "booking_123", EventID: "rumtek_visit", Date: "2024-02-15", Status: "confirmed", Type: "monastery_visit"},
		{ID: "booking_124", EventID: "meditation_workshop", Date: "2024-03-15", Status: "pending", Type: "workshop"},
	},
}

// MonasteryIDs returns the ids known to d, in directory order.
func MonasteryIDs(d Directory) []string {
	list := d.Monasteries()
	ids := make([]string, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	return ids
}
