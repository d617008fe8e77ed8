package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/monastery360/agent/internal/models"
)

// rule is one entry of the priority list. The first rule whose keywords
// appear in the lower-cased message wins.
type rule struct {
	kind     models.Kind
	keywords []string
	extract  func(h *Heuristic, text, lower string) models.Intent
}

// Heuristic is the keyword/regex extractor. It has no external dependencies
// and never fails.
type Heuristic struct {
	rules        []rule
	monasteryIDs []string
}

// NewHeuristic builds the extractor. monasteryIDs lets the events rule pick
// out a monastery filter.
func NewHeuristic(monasteryIDs []string) *Heuristic {
	h := &Heuristic{monasteryIDs: monasteryIDs}
	h.rules = []rule{
		{models.KindNavigate, []string{"navigate", "go to", "take me to", "show me"}, extractNavigate},
		{models.KindBook, []string{"book", "ticket", "reserve"}, extractBook},
		{models.KindPay, []string{"pay", "donate", "donation"}, extractPay},
		{models.KindSearch, []string{"search", "find", "look for"}, extractSearch},
		{models.KindEvents, []string{"event", "festival", "celebration"}, extractEvents},
		{models.KindProfileGet, []string{"profile", "account", "my info"}, extractProfile},
		{models.KindFeedback, []string{"feedback", "review", "complaint", "suggestion"}, extractFeedback},
		{models.KindWeather, []string{"weather", "forecast"}, extractWeather},
		{models.KindTravel, []string{"travel", "get to", "how to reach", "how to"}, extractTravel},
		{models.KindOpenModal, []string{"open", "modal", "popup"}, extractModal},
		{models.KindScroll, []string{"scroll", "jump to"}, extractScroll},
	}
	return h
}

// Priority returns the kinds in matching order, ending with general.
func (h *Heuristic) Priority() []models.Kind {
	kinds := make([]models.Kind, 0, len(h.rules)+1)
	for _, r := range h.rules {
		kinds = append(kinds, r.kind)
	}
	return append(kinds, models.KindGeneral)
}

func (h *Heuristic) Extract(text string) models.Intent {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.GeneralIntent()
	}
	lower := strings.ToLower(text)
	for _, r := range h.rules {
		if containsAny(lower, r.keywords) {
			return r.extract(h, text, lower)
		}
	}
	return models.GeneralIntent()
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

var (
	navigatePattern  = regexp.MustCompile(`(?i)(?:go to|navigate(?: to)?|take me to|show me)\s+(?:the\s+|my\s+)?(/[\w-]+|[\w-]+)`)
	quantityPattern  = regexp.MustCompile(`(?i)(\d+)\s+tickets?`)
	bookEventPattern = regexp.MustCompile(`(?i)(?:book|reserve)\s+(?:\d+\s+)?(?:tickets?\s+)?(?:for\s+)?(?:the\s+)?(.+)`)
	datePattern      = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	amountPattern    = regexp.MustCompile(`(?i)(?:₹|rs\.?|inr)?\s*(\d+(?:,\d{3})*(?:\.\d+)?)`)
	forPattern       = regexp.MustCompile(`(?i)\bfor\s+(.+)`)
	searchPattern    = regexp.MustCompile(`(?i)(?:search(?:\s+for)?|find|look for)\s+(.+)`)
	withPattern      = regexp.MustCompile(`(?i)\s+with\s+(.+)$`)
	inPattern        = regexp.MustCompile(`(?i)\s+in\s+([a-z][a-z\s]*)$`)
	emailPattern     = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	phonePattern     = regexp.MustCompile(`\+?\d[\d\s-]{7,}\d`)
	namePattern      = regexp.MustCompile(`(?i)(?:my name is|name to)\s+([a-z][a-z\s'.-]*)`)
	ratingPattern    = regexp.MustCompile(`(?i)\b([1-5])\s*(?:stars?|/\s*5)`)
	weatherPattern   = regexp.MustCompile(`(?i)(?:weather|forecast)\s+(?:in|for|at)\s+([a-z][a-z\s]*)`)
	daysPattern      = regexp.MustCompile(`(?i)(\d+)\s*days?`)
	travelToPattern  = regexp.MustCompile(`(?i)(?:get to|travel to|reach)\s+([a-z][a-z\s]*?)(?:\s+from\b|\s+by\b|[?.!]|$)`)
	fromPattern      = regexp.MustCompile(`(?i)\bfrom\s+([a-z][a-z\s]*?)(?:\s+to\b|\s+by\b|[?.!]|$)`)
	modalPattern     = regexp.MustCompile(`(?i)open\s+(?:the\s+|a\s+)?(.+?)(?:\s+(?:modal|popup|window))?$`)
	scrollPattern    = regexp.MustCompile(`(?i)(?:scroll(?:\s+(?:down|up))?\s+to|jump to)\s+(?:the\s+)?(.+?)(?:\s+section)?$`)
	nonSlugChars     = regexp.MustCompile(`[^a-z0-9]+`)
)

// featureTokens is ordered so extracted features come out stable.
var featureTokens = []struct {
	pattern *regexp.Regexp
	feature string
}{
	{regexp.MustCompile(`(?i)\bar\b`), "AR"},
	{regexp.MustCompile(`(?i)\bvr\b`), "VR"},
	{regexp.MustCompile(`\b360\b`), "360"},
	{regexp.MustCompile(`(?i)\bguided tours?\b`), "Guided Tour"},
}

// slug lower-cases s and joins word runs with underscores.
func slug(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

func trimPunct(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "?.!,"))
}

func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); len(m) > 1 {
		return trimPunct(m[1])
	}
	return ""
}

func intent(kind models.Kind, params map[string]any) models.Intent {
	return models.Intent{Kind: kind, Parameters: params}
}

func extractNavigate(_ *Heuristic, text, _ string) models.Intent {
	page := "/"
	if p := firstGroup(navigatePattern, text); p != "" {
		page = strings.ToLower(p)
		if !strings.HasPrefix(page, "/") {
			page = "/" + page
		}
	}
	return intent(models.KindNavigate, map[string]any{"page": page})
}

func extractBook(_ *Heuristic, text, _ string) models.Intent {
	params := map[string]any{"quantity": 1}
	if q := firstGroup(quantityPattern, text); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			params["quantity"] = n
		}
	}
	if d := firstGroup(datePattern, text); d != "" {
		params["date"] = d
		text = strings.Replace(text, d, "", 1)
	}
	eventID := "monastery_visit"
	if e := firstGroup(bookEventPattern, text); e != "" {
		e = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(e, " on"), " for"))
		if s := slug(e); s != "" && s != "ticket" && s != "tickets" {
			eventID = s
		}
	}
	params["eventId"] = eventID
	return intent(models.KindBook, params)
}

func extractPay(_ *Heuristic, text, lower string) models.Intent {
	amount := 100.0
	if a := firstGroup(amountPattern, text); a != "" {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(a, ",", ""), 64); err == nil && f > 0 {
			amount = f
		}
	}
	payType := "booking"
	if strings.Contains(lower, "donat") {
		payType = "donation"
	}
	params := map[string]any{"amount": amount, "type": payType}
	if d := firstGroup(forPattern, text); d != "" {
		params["description"] = d
	}
	return intent(models.KindPay, params)
}

func extractSearch(_ *Heuristic, text, _ string) models.Intent {
	params := map[string]any{}
	query := firstGroup(searchPattern, text)

	if m := withPattern.FindStringSubmatch(query); len(m) > 1 {
		query = strings.TrimSpace(query[:len(query)-len(m[0])])
	}
	if m := inPattern.FindStringSubmatch(query); len(m) > 1 {
		params["location"] = trimPunct(m[1])
		query = strings.TrimSpace(query[:len(query)-len(m[0])])
	}

	var features []string
	for _, ft := range featureTokens {
		if ft.pattern.MatchString(text) {
			features = append(features, ft.feature)
		}
	}
	if len(features) > 0 {
		params["features"] = features
	}

	query = strings.TrimPrefix(strings.ToLower(query), "for ")
	if query == "" {
		query = "monasteries"
	}
	params["query"] = query
	return intent(models.KindSearch, params)
}

func extractEvents(h *Heuristic, _, lower string) models.Intent {
	params := map[string]any{}
	for _, id := range h.monasteryIDs {
		if strings.Contains(lower, id) {
			params["monasteryId"] = id
			break
		}
	}
	for _, t := range []string{"festival", "ceremony", "workshop", "tour"} {
		if strings.Contains(lower, t) {
			params["type"] = t
			break
		}
	}
	return intent(models.KindEvents, params)
}

func extractProfile(_ *Heuristic, text, lower string) models.Intent {
	if !containsAny(lower, []string{"update", "change", "edit", "set my"}) {
		return intent(models.KindProfileGet, map[string]any{})
	}
	params := map[string]any{}
	if e := emailPattern.FindString(text); e != "" {
		params["email"] = e
	}
	if p := phonePattern.FindString(text); p != "" {
		params["phone"] = strings.TrimSpace(p)
	}
	if n := firstGroup(namePattern, text); n != "" {
		params["name"] = n
	}
	return intent(models.KindProfileUpdate, params)
}

func extractFeedback(_ *Heuristic, text, lower string) models.Intent {
	fbType := "feedback"
	for _, t := range []string{"complaint", "suggestion", "review"} {
		if strings.Contains(lower, t) {
			fbType = t
			break
		}
	}
	params := map[string]any{"type": fbType, "content": text}
	if r := firstGroup(ratingPattern, text); r != "" {
		if n, err := strconv.Atoi(r); err == nil {
			params["rating"] = n
		}
	}
	return intent(models.KindFeedback, params)
}

func extractWeather(_ *Heuristic, text, _ string) models.Intent {
	params := map[string]any{"location": "Gangtok"}
	if loc := firstGroup(weatherPattern, text); loc != "" {
		loc = daysPattern.ReplaceAllString(loc, "")
		loc = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(loc), " for"))
		if loc != "" {
			params["location"] = titleCase(loc)
		}
	}
	if d := firstGroup(daysPattern, text); d != "" {
		if n, err := strconv.Atoi(d); err == nil {
			params["days"] = n
		}
	}
	return intent(models.KindWeather, params)
}

func extractTravel(_ *Heuristic, text, lower string) models.Intent {
	params := map[string]any{"to": "Sikkim"}
	if to := firstGroup(travelToPattern, text); to != "" {
		params["to"] = titleCase(to)
	}
	if from := firstGroup(fromPattern, text); from != "" {
		params["from"] = titleCase(from)
	}
	for _, mode := range []string{"flight", "bus", "car", "train"} {
		if strings.Contains(lower, mode) {
			params["mode"] = mode
			break
		}
	}
	return intent(models.KindTravel, params)
}

func extractModal(_ *Heuristic, text, _ string) models.Intent {
	modalType := "info"
	if m := firstGroup(modalPattern, text); m != "" {
		if s := slug(m); s != "" {
			modalType = s
		}
	}
	return intent(models.KindOpenModal, map[string]any{"modalType": modalType})
}

func extractScroll(_ *Heuristic, text, _ string) models.Intent {
	section := "top"
	if s := firstGroup(scrollPattern, text); s != "" {
		section = strings.ToLower(s)
	}
	return intent(models.KindScroll, map[string]any{"section": section})
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
