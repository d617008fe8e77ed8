package actions

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/monastery360/agent/internal/models"
)

// Documented defaults for missing or unusable parameters.
const (
	DefaultPage          = "/"
	DefaultEventID       = "monastery_visit"
	DefaultQuantity      = 1
	DefaultBookingType   = "monastery_visit"
	DefaultAmount        = 100.0
	DefaultPaymentType   = "booking"
	DefaultCurrency      = "INR"
	DefaultQuery         = "monasteries"
	DefaultEventType     = "all"
	DefaultEventLimit    = 10
	MaxEventLimit        = 50
	DefaultFeedbackType  = "feedback"
	DefaultLocation      = "Gangtok"
	DefaultForecastDays  = 3
	MaxForecastDays      = 14
	DefaultDestination   = "Sikkim"
	DefaultTravelMode    = "all"
	DefaultModalType     = "info"
	DefaultScrollSection = "top"
)

var (
	bookingTypes  = []string{"monastery_visit", "event", "tour", "festival"}
	paymentTypes  = []string{"booking", "donation", "event", "tour", "membership"}
	eventTypes    = []string{"festival", "ceremony", "tour", "workshop", "all"}
	feedbackTypes = []string{"review", "feedback", "complaint", "suggestion", "bug_report"}
	travelModes   = []string{"flight", "bus", "car", "train", "all"}
)

// Queries that mean "everything" rather than a name to match.
var genericQueries = map[string]bool{
	"":            true,
	"all":         true,
	"monastery":   true,
	"monasteries": true,
}

func (c *Catalog) builtinEntries() []Entry {
	return []Entry{
		{
			Kind:        models.KindNavigate,
			ToolName:    "navigate_to_page",
			Description: "Navigate user to any page on the website",
			Params: []ParamSpec{
				{Name: "page", Type: TypeString, Required: true, Default: DefaultPage, Description: "The page route to navigate to (e.g., /bookings, /events, /profile, /explore, /maps, /contact)"},
				{Name: "message", Type: TypeString, Description: "Optional message to display to user"},
			},
			Handler: c.navigate,
		},
		{
			Kind:        models.KindBook,
			ToolName:    "book_tickets",
			Description: "Book tickets for monastery visits, events, or tours",
			Params: []ParamSpec{
				{Name: "eventId", Type: TypeString, Required: true, Default: DefaultEventID, Description: "ID or name of the event/monastery to book"},
				{Name: "quantity", Type: TypeNumber, Default: float64(DefaultQuantity), Min: float(1), Description: "Number of tickets to book"},
				{Name: "date", Type: TypeString, Description: "Date for the booking (YYYY-MM-DD format)"},
				{Name: "time", Type: TypeString, Description: "Time slot for the booking"},
				{Name: "type", Type: TypeString, Default: DefaultBookingType, Enum: bookingTypes, Description: "Type of booking"},
			},
			Handler: c.book,
		},
		{
			Kind:        models.KindPay,
			ToolName:    "process_payment",
			Description: "Process payment for bookings, donations, or services",
			Params: []ParamSpec{
				{Name: "amount", Type: TypeNumber, Required: true, Default: DefaultAmount, Description: "Payment amount"},
				{Name: "type", Type: TypeString, Required: true, Default: DefaultPaymentType, Enum: paymentTypes, Description: "Type of payment"},
				{Name: "description", Type: TypeString, Default: "", Description: "Description of the payment"},
				{Name: "currency", Type: TypeString, Default: DefaultCurrency, Description: "Currency code"},
			},
			Handler: c.pay,
		},
		{
			Kind:        models.KindSearch,
			ToolName:    "search_monasteries",
			Description: "Search for monasteries with various filters",
			Params: []ParamSpec{
				{Name: "query", Type: TypeString, Default: DefaultQuery, Description: "Search query for monasteries"},
				{Name: "location", Type: TypeString, Description: "Location filter (e.g., 'Gangtok', 'West Sikkim', 'East Sikkim')"},
				{Name: "features", Type: TypeArray, Description: "Features to filter by (e.g., ['AR', 'VR', '360', 'Guided Tour'])"},
				{Name: "rating", Type: TypeNumber, Min: float(1), Max: float(5), Description: "Minimum rating filter"},
				{Name: "distance", Type: TypeNumber, Description: "Maximum distance in km from a location"},
			},
			Handler: c.search,
		},
		{
			Kind:        models.KindEvents,
			ToolName:    "get_events",
			Description: "Get upcoming events, festivals, and activities",
			Params: []ParamSpec{
				{Name: "monasteryId", Type: TypeString, Description: "Filter events by monastery ID"},
				{Name: "dateRange", Type: TypeString, Description: "Date range for events (e.g., 'this week', 'next month', '2024-12')"},
				{Name: "type", Type: TypeString, Default: DefaultEventType, Enum: eventTypes, Description: "Type of event"},
				{Name: "limit", Type: TypeNumber, Default: float64(DefaultEventLimit), Min: float(1), Max: float(MaxEventLimit), Description: "Maximum number of events to return"},
			},
			Handler: c.events,
		},
		{
			Kind:        models.KindProfileGet,
			ToolName:    "get_user_profile",
			Description: "Get current user profile and preferences",
			Params: []ParamSpec{
				{Name: "includeBookings", Type: TypeBoolean, Default: false, Description: "Include user's booking history"},
				{Name: "includePreferences", Type: TypeBoolean, Default: true, Description: "Include user preferences"},
			},
			Handler: c.profileGet,
		},
		{
			Kind:        models.KindProfileUpdate,
			ToolName:    "update_user_profile",
			Description: "Update user profile information",
			Params: []ParamSpec{
				{Name: "name", Type: TypeString, Description: "User's full name"},
				{Name: "email", Type: TypeString, Description: "User's email"},
				{Name: "phone", Type: TypeString, Description: "User's phone number"},
				{Name: "preferences", Type: TypeObject, Description: "User preferences object"},
				{Name: "notifications", Type: TypeObject, Description: "Notification preferences"},
			},
			Handler: c.profileUpdate,
		},
		{
			Kind:        models.KindFeedback,
			ToolName:    "submit_feedback",
			Description: "Submit feedback, reviews, or complaints",
			Params: []ParamSpec{
				{Name: "type", Type: TypeString, Required: true, Default: DefaultFeedbackType, Enum: feedbackTypes, Description: "Type of feedback"},
				{Name: "content", Type: TypeString, Required: true, Default: "", Description: "Feedback content"},
				{Name: "rating", Type: TypeNumber, Min: float(1), Max: float(5), Description: "Rating (1-5 stars)"},
				{Name: "targetId", Type: TypeString, Description: "ID of monastery, event, or service being reviewed"},
				{Name: "category", Type: TypeString, Description: "Category of feedback"},
			},
			Handler: c.feedback,
		},
		{
			Kind:        models.KindWeather,
			ToolName:    "get_weather",
			Description: "Get weather information for Sikkim",
			Params: []ParamSpec{
				{Name: "location", Type: TypeString, Default: DefaultLocation, Description: "Location in Sikkim (e.g., 'Gangtok', 'Pelling')"},
				{Name: "days", Type: TypeNumber, Default: float64(DefaultForecastDays), Min: float(1), Max: float(MaxForecastDays), Description: "Number of days to forecast"},
			},
			Handler: c.weather,
		},
		{
			Kind:        models.KindTravel,
			ToolName:    "get_travel_info",
			Description: "Get travel information and recommendations",
			Params: []ParamSpec{
				{Name: "from", Type: TypeString, Description: "Starting location"},
				{Name: "to", Type: TypeString, Required: true, Default: DefaultDestination, Description: "Destination in Sikkim"},
				{Name: "mode", Type: TypeString, Default: DefaultTravelMode, Enum: travelModes, Description: "Transportation mode"},
				{Name: "date", Type: TypeString, Description: "Travel date (YYYY-MM-DD format)"},
			},
			Handler: c.travel,
		},
		{
			Kind:        models.KindOpenModal,
			ToolName:    "open_modal",
			Description: "Open a modal or popup on the website",
			Params: []ParamSpec{
				{Name: "modalType", Type: TypeString, Required: true, Default: DefaultModalType, Description: "Type of modal to open (e.g., image, video, ar_view, booking_form, payment_form, info)"},
				{Name: "content", Type: TypeObject, Description: "Content to display in modal"},
				{Name: "title", Type: TypeString, Description: "Modal title"},
			},
			Handler: c.openModal,
		},
		{
			Kind:        models.KindScroll,
			ToolName:    "scroll_to_section",
			Description: "Scroll to a specific section on the current page",
			Params: []ParamSpec{
				{Name: "section", Type: TypeString, Required: true, Default: DefaultScrollSection, Description: "Section ID or name to scroll to"},
				{Name: "smooth", Type: TypeBoolean, Default: true, Description: "Whether to use smooth scrolling"},
			},
			Handler: c.scroll,
		},
	}
}

type Navigation struct {
	Page      string `json:"page"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// NormalizePage forces a leading slash onto a route.
func NormalizePage(page string) string {
	page = strings.TrimSpace(page)
	if page == "" {
		return DefaultPage
	}
	if !strings.HasPrefix(page, "/") {
		page = "/" + page
	}
	return page
}

func (c *Catalog) navigate(p Params) Result {
	page := NormalizePage(p.String("page"))
	return Result{
		Message: p.StringOr("message", fmt.Sprintf("Navigating to %s...", page)),
		Target:  page,
		Data:    Navigation{Page: page, Type: "navigation", Timestamp: c.now()},
	}
}

type Booking struct {
	BookingID string `json:"bookingId"`
	EventID   string `json:"eventId"`
	Quantity  int    `json:"quantity"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (c *Catalog) book(p Params) Result {
	quantity := p.IntOr("quantity", DefaultQuantity)
	if quantity < 1 {
		quantity = DefaultQuantity
	}
	b := Booking{
		BookingID: c.ids("booking"),
		EventID:   p.StringOr("eventId", DefaultEventID),
		Quantity:  quantity,
		Date:      p.String("date"),
		Time:      p.String("time"),
		Type:      oneOf(p.String("type"), bookingTypes, DefaultBookingType),
		Status:    "confirmed",
		Timestamp: c.now(),
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "Successfully booked %d ticket(s) for %s", b.Quantity, b.EventID)
	if b.Date != "" {
		fmt.Fprintf(&msg, " on %s", b.Date)
	}
	if b.Time != "" {
		fmt.Fprintf(&msg, " at %s", b.Time)
	}
	fmt.Fprintf(&msg, ". Booking ID: %s", b.BookingID)

	return Result{Message: msg.String(), Target: "/bookings", Data: b}
}

type Payment struct {
	PaymentID   string  `json:"paymentId"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
}

func (c *Catalog) pay(p Params) Result {
	amount, ok := p.Number("amount")
	if !ok || amount <= 0 {
		amount = DefaultAmount
	}
	pm := Payment{
		PaymentID:   c.ids("pay"),
		Amount:      amount,
		Type:        oneOf(p.String("type"), paymentTypes, DefaultPaymentType),
		Description: p.String("description"),
		Currency:    strings.ToUpper(p.StringOr("currency", DefaultCurrency)),
		Status:      "processing",
		Timestamp:   c.now(),
	}

	msg := fmt.Sprintf("Processing %s payment of %s %s", pm.Type, pm.Currency, strconv.FormatFloat(pm.Amount, 'f', -1, 64))
	if pm.Description != "" {
		msg += " for " + pm.Description
	}
	msg += ". Payment ID: " + pm.PaymentID

	return Result{Message: msg, Target: "/payment", Data: pm}
}

type SearchResults struct {
	Results    []Monastery `json:"results"`
	Query      string      `json:"query"`
	Location   string      `json:"location,omitempty"`
	Features   []string    `json:"features"`
	Rating     *float64    `json:"rating"`
	Distance   *float64    `json:"distance"`
	TotalCount int         `json:"totalCount"`
	Timestamp  string      `json:"timestamp"`
}

func (c *Catalog) search(p Params) Result {
	query := p.StringOr("query", DefaultQuery)
	location := p.String("location")
	features := p.Strings("features")
	rating := p.OptionalNumber("rating")
	distance := p.OptionalNumber("distance")

	results := FilterMonasteries(c.directory.Monasteries(), query, location, features, rating, distance)

	return Result{
		Message: fmt.Sprintf("Found %d monasteries matching your search", len(results)),
		Target:  "/explore",
		Data: SearchResults{
			Results:    results,
			Query:      query,
			Location:   location,
			Features:   features,
			Rating:     rating,
			Distance:   distance,
			TotalCount: len(results),
			Timestamp:  c.now(),
		},
	}
}

// FilterMonasteries applies the search criteria, keeping candidate order.
func FilterMonasteries(candidates []Monastery, query, location string, features []string, rating, distance *float64) []Monastery {
	q := strings.ToLower(strings.TrimSpace(query))
	loc := strings.ToLower(strings.TrimSpace(location))

	results := make([]Monastery, 0, len(candidates))
	for _, m := range candidates {
		if loc != "" && !strings.Contains(strings.ToLower(m.Location), loc) {
			continue
		}
		if len(features) > 0 && !hasAnyFeature(m.Features, features) {
			continue
		}
		if rating != nil && m.Rating < *rating {
			continue
		}
		if distance != nil && m.Distance > *distance {
			continue
		}
		if !genericQueries[q] && !matchesQuery(m, q) {
			continue
		}
		results = append(results, m)
	}
	return results
}

func hasAnyFeature(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func matchesQuery(m Monastery, q string) bool {
	if strings.Contains(strings.ToLower(m.Name), q) || strings.Contains(strings.ToLower(m.Description), q) {
		return true
	}
	for _, h := range m.Highlights {
		if strings.Contains(strings.ToLower(h), q) {
			return true
		}
	}
	return false
}

type EventList struct {
	Events      []Event `json:"events"`
	MonasteryID string  `json:"monasteryId,omitempty"`
	DateRange   string  `json:"dateRange,omitempty"`
	Type        string  `json:"type"`
	TotalCount  int     `json:"totalCount"`
	Timestamp   string  `json:"timestamp"`
}

func (c *Catalog) events(p Params) Result {
	monasteryID := strings.ToLower(p.String("monasteryId"))
	eventType := oneOf(p.String("type"), eventTypes, DefaultEventType)
	limit := p.IntOr("limit", DefaultEventLimit)
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	limit = min(limit, MaxEventLimit)

	candidates := c.directory.Events()
	events := make([]Event, 0, min(limit, len(candidates)))
	for _, e := range candidates {
		if monasteryID != "" && e.MonasteryID != monasteryID {
			continue
		}
		if eventType != "all" && e.Type != eventType {
			continue
		}
		if len(events) == limit {
			break
		}
		events = append(events, e)
	}

	return Result{
		Message: fmt.Sprintf("Found %d upcoming events", len(events)),
		Target:  "/events",
		Data: EventList{
			Events:      events,
			MonasteryID: monasteryID,
			DateRange:   p.String("dateRange"),
			Type:        eventType,
			TotalCount:  len(events),
			Timestamp:   c.now(),
		},
	}
}

func (c *Catalog) profileGet(p Params) Result {
	profile := c.directory.Profile()
	if !p.BoolOr("includePreferences", true) {
		profile.Preferences = nil
	}
	if !p.BoolOr("includeBookings", false) {
		profile.Bookings = nil
	}
	return Result{
		Message: "Here's your profile information",
		Target:  "/profile",
		Data:    profile,
	}
}

type ProfileUpdate struct {
	Name          string         `json:"name,omitempty"`
	Email         string         `json:"email,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	Preferences   map[string]any `json:"preferences,omitempty"`
	Notifications map[string]any `json:"notifications,omitempty"`
	UpdatedAt     string         `json:"updatedAt"`
}

func (c *Catalog) profileUpdate(p Params) Result {
	return Result{
		Message: "Profile updated successfully",
		Target:  "/profile",
		Data: ProfileUpdate{
			Name:          p.String("name"),
			Email:         p.String("email"),
			Phone:         p.String("phone"),
			Preferences:   p.Map("preferences"),
			Notifications: p.Map("notifications"),
			UpdatedAt:     c.now(),
		},
	}
}

type Feedback struct {
	FeedbackID string   `json:"feedbackId"`
	Type       string   `json:"type"`
	Content    string   `json:"content"`
	Rating     *float64 `json:"rating"`
	TargetID   string   `json:"targetId,omitempty"`
	Category   string   `json:"category,omitempty"`
	Status     string   `json:"status"`
	Timestamp  string   `json:"timestamp"`
}

func (c *Catalog) feedback(p Params) Result {
	rating := p.OptionalNumber("rating")
	if rating != nil {
		r := min(max(*rating, 1), 5)
		rating = &r
	}
	fb := Feedback{
		FeedbackID: c.ids("feedback"),
		Type:       oneOf(p.String("type"), feedbackTypes, DefaultFeedbackType),
		Content:    p.String("content"),
		Rating:     rating,
		TargetID:   p.String("targetId"),
		Category:   p.String("category"),
		Status:     "submitted",
		Timestamp:  c.now(),
	}
	return Result{
		Message: fmt.Sprintf("Thank you for your %s! Your feedback has been recorded.", strings.ReplaceAll(fb.Type, "_", " ")),
		Target:  "/feedback",
		Data:    fb,
	}
}

type CurrentWeather struct {
	Temperature int    `json:"temperature"`
	Condition   string `json:"condition"`
	Humidity    int    `json:"humidity"`
	WindSpeed   int    `json:"windSpeed"`
	Visibility  string `json:"visibility"`
}

type DayForecast struct {
	Date      string `json:"date"`
	High      int    `json:"high"`
	Low       int    `json:"low"`
	Condition string `json:"condition"`
	Humidity  int    `json:"humidity"`
	WindSpeed int    `json:"windSpeed"`
}

type Weather struct {
	Location string         `json:"location"`
	Current  CurrentWeather `json:"current"`
	Forecast []DayForecast  `json:"forecast"`
}

var conditions = []string{"Sunny", "Partly Cloudy", "Cloudy", "Light Rain"}

func (c *Catalog) weather(p Params) Result {
	location := p.StringOr("location", DefaultLocation)
	days := p.IntOr("days", DefaultForecastDays)
	if days < 1 {
		days = DefaultForecastDays
	}
	days = min(days, MaxForecastDays)

	start := c.clock().UTC()
	forecast := make([]DayForecast, days)
	for i := range forecast {
		seed := forecastSeed(location, i)
		forecast[i] = DayForecast{
			Date:      start.Add(time.Duration(i) * 24 * time.Hour).Format("2006-01-02"),
			High:      20 + int(seed%5),
			Low:       15 + int(seed%3),
			Condition: conditions[seed%uint32(len(conditions))],
			Humidity:  60 + int(seed%20),
			WindSpeed: 10 + int(seed%10),
		}
	}

	return Result{
		Message: fmt.Sprintf("Weather information for %s", location),
		Target:  "/weather",
		Data: Weather{
			Location: location,
			Current: CurrentWeather{
				Temperature: 18,
				Condition:   "Partly Cloudy",
				Humidity:    65,
				WindSpeed:   12,
				Visibility:  "Good",
			},
			Forecast: forecast,
		},
	}
}

func forecastSeed(location string, day int) uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s:%d", strings.ToLower(location), day)
	return h.Sum32()
}

type TravelOption struct {
	Mode      string `json:"mode"`
	Duration  string `json:"duration"`
	Price     int    `json:"price"`
	Operator  string `json:"operator,omitempty"`
	Departure string `json:"departure,omitempty"`
	Arrival   string `json:"arrival,omitempty"`
	Distance  string `json:"distance,omitempty"`
	Stops     string `json:"stops"`
}

type TravelInfo struct {
	From      string         `json:"from,omitempty"`
	To        string         `json:"to"`
	Mode      string         `json:"mode"`
	Date      string         `json:"date,omitempty"`
	Options   []TravelOption `json:"options"`
	Timestamp string         `json:"timestamp"`
}

var travelOptions = []TravelOption{
	{Mode: "flight", Duration: "2h 30m", Price: 8000, Operator: "IndiGo", Departure: "6:00 AM", Arrival: "8:30 AM", Stops: "Direct"},
	{Mode: "bus", Duration: "6h 30m", Price: 1200, Operator: "Sikkim National Transport", Departure: "7:00 AM", Arrival: "1:30 PM", Stops: "Multiple"},
	{Mode: "car", Duration: "5h 15m", Price: 3500, Operator: "Taxi", Distance: "120 km", Stops: "Direct"},
	{Mode: "train", Duration: "8h 45m", Price: 2500, Operator: "Northeast Express", Departure: "10:00 PM", Arrival: "6:45 AM", Stops: "2 stops"},
}

func (c *Catalog) travel(p Params) Result {
	from := p.String("from")
	to := p.StringOr("to", DefaultDestination)
	mode := oneOf(p.String("mode"), travelModes, DefaultTravelMode)

	options := make([]TravelOption, 0, len(travelOptions))
	for _, o := range travelOptions {
		if mode == "all" || o.Mode == mode {
			options = append(options, o)
		}
	}

	msg := fmt.Sprintf("Travel options to %s", to)
	if from != "" {
		msg = fmt.Sprintf("Travel options from %s to %s", from, to)
	}

	return Result{
		Message: msg,
		Target:  "/travel",
		Data: TravelInfo{
			From:      from,
			To:        to,
			Mode:      mode,
			Date:      p.String("date"),
			Options:   options,
			Timestamp: c.now(),
		},
	}
}

type Modal struct {
	ModalType string `json:"modalType"`
	Content   any    `json:"content"`
	Title     string `json:"title,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (c *Catalog) openModal(p Params) Result {
	modalType := p.StringOr("modalType", DefaultModalType)
	return Result{
		Message: fmt.Sprintf("Opening %s modal", strings.ReplaceAll(modalType, "_", " ")),
		Target:  TargetModal,
		Data: Modal{
			ModalType: modalType,
			Content:   p.Value("content"),
			Title:     p.String("title"),
			Timestamp: c.now(),
		},
	}
}

type Scroll struct {
	Section   string `json:"section"`
	Smooth    bool   `json:"smooth"`
	Timestamp string `json:"timestamp"`
}

func (c *Catalog) scroll(p Params) Result {
	section := p.StringOr("section", DefaultScrollSection)
	return Result{
		Message: fmt.Sprintf("Scrolling to %s section", section),
		Target:  TargetCurrentPage,
		Data: Scroll{
			Section:   section,
			Smooth:    p.BoolOr("smooth", true),
			Timestamp: c.now(),
		},
	}
}
