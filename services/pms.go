package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
)

// PMSClient talks to the property management system that aggregates Airbnb,
// Booking.com and direct inventory. It is the external ledger: a booking the
// PMS cannot confirm must never be admitted.
type PMSClient interface {
	IsConfigured() bool
	MappedAccommodations() []string

	// AccommodationForProperty reverses the property mapping for inbound
	// webhooks, which identify units by PMS property id.
	AccommodationForProperty(propertyID string) (string, bool)

	// CheckAvailability is fail-closed: only an explicit available=true from
	// the PMS returns (true, nil). Anything else, including transport
	// errors, resolves to unavailable.
	CheckAvailability(accommodation string, checkIn, checkOut time.Time) (bool, error)

	// PushBooking creates the reservation in the PMS and returns its id.
	PushBooking(b *models.Booking) (string, error)

	CancelBooking(pmsBookingID string) error

	// FetchBookings pulls all PMS bookings for the accommodation in the
	// window, normalized to the local shape.
	FetchBookings(accommodation string, from, to time.Time) ([]models.Booking, error)

	VerifyCredentials() error
}

var ErrPMSNotConfigured = errors.New("pms integration not configured")

type httpPMSClient struct {
	baseURL     string
	apiKey      string
	propertyMap map[string]string
	client      *http.Client
}

// NewPMSClientFromEnv builds the client from PMS_API_URL, PMS_API_KEY and
// PMS_PROPERTY_MAP ("dome-pinot:101,dome-rose:102,cottage:103"). Missing
// values leave the client unconfigured; callers decide whether that is a
// degraded mode (availability) or an error (sync).
func NewPMSClientFromEnv() PMSClient {
	return &httpPMSClient{
		baseURL:     strings.TrimRight(os.Getenv("PMS_API_URL"), "/"),
		apiKey:      os.Getenv("PMS_API_KEY"),
		propertyMap: parsePropertyMap(os.Getenv("PMS_PROPERTY_MAP")),
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

func parsePropertyMap(raw string) map[string]string {
	mapping := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		if !models.KnownAccommodation(parts[0]) {
			continue
		}
		mapping[parts[0]] = parts[1]
	}
	return mapping
}

func (c *httpPMSClient) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != "" && len(c.propertyMap) > 0
}

func (c *httpPMSClient) MappedAccommodations() []string {
	slugs := make([]string, 0, len(c.propertyMap))
	for slug := range c.propertyMap {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

func (c *httpPMSClient) AccommodationForProperty(propertyID string) (string, bool) {
	for slug, id := range c.propertyMap {
		if id == propertyID {
			return slug, true
		}
	}
	return "", false
}

func (c *httpPMSClient) propertyID(accommodation string) (string, error) {
	id, ok := c.propertyMap[accommodation]
	if !ok {
		return "", fmt.Errorf("no PMS property mapped for %q", accommodation)
	}
	return id, nil
}

func (c *httpPMSClient) do(method, path string, query url.Values, body interface{}) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrPMSNotConfigured
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("pms responded %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

const dateLayout = "2006-01-02"

func (c *httpPMSClient) CheckAvailability(accommodation string, checkIn, checkOut time.Time) (bool, error) {
	propertyID, err := c.propertyID(accommodation)
	if err != nil {
		return false, err
	}

	query := url.Values{}
	query.Set("start", checkIn.Format(dateLayout))
	query.Set("end", checkOut.Format(dateLayout))

	data, err := c.do(http.MethodGet, "/properties/"+propertyID+"/availability", query, nil)
	if err != nil {
		return false, err
	}

	var result struct {
		Available *bool `json:"available"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return false, fmt.Errorf("pms availability response unreadable: %w", err)
	}
	if result.Available == nil {
		return false, errors.New("pms availability response missing available field")
	}
	return *result.Available, nil
}

func (c *httpPMSClient) PushBooking(b *models.Booking) (string, error) {
	propertyID, err := c.propertyID(b.Accommodation)
	if err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"guestName":  b.GuestName,
		"guestEmail": b.GuestEmail,
		"guestPhone": b.GuestPhone,
		"arrival":    b.CheckIn.Format(dateLayout),
		"departure":  b.CheckOut.Format(dateLayout),
		"adults":     b.Guests,
		"children":   b.Children,
		"totalPrice": b.TotalPrice,
		"notes":      b.Notes,
		"channel":    "direct",
		"reference":  b.ID,
	}

	data, err := c.do(http.MethodPost, "/properties/"+propertyID+"/bookings", nil, payload)
	if err != nil {
		return "", err
	}

	var result struct {
		ID      json.Number `json:"id"`
		Booking *struct {
			ID json.Number `json:"id"`
		} `json:"booking"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("pms booking response unreadable: %w", err)
	}
	if result.Booking != nil && result.Booking.ID.String() != "" {
		return result.Booking.ID.String(), nil
	}
	if result.ID.String() != "" {
		return result.ID.String(), nil
	}
	return "", errors.New("pms booking response missing id")
}

func (c *httpPMSClient) CancelBooking(pmsBookingID string) error {
	_, err := c.do(http.MethodDelete, "/bookings/"+pmsBookingID, nil, nil)
	return err
}

func (c *httpPMSClient) FetchBookings(accommodation string, from, to time.Time) ([]models.Booking, error) {
	propertyID, err := c.propertyID(accommodation)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("from", from.Format(dateLayout))
	query.Set("to", to.Format(dateLayout))

	data, err := c.do(http.MethodGet, "/properties/"+propertyID+"/bookings", query, nil)
	if err != nil {
		return nil, err
	}

	raw, err := decodePMSBookingList(data)
	if err != nil {
		return nil, err
	}

	bookings := make([]models.Booking, 0, len(raw))
	for _, entry := range raw {
		booking, ok := entry.toBooking(accommodation)
		if !ok {
			continue // unusable without both dates
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func (c *httpPMSClient) VerifyCredentials() error {
	if !c.IsConfigured() {
		return ErrPMSNotConfigured
	}
	_, err := c.do(http.MethodGet, "/account", nil, nil)
	return err
}

// pmsBooking tolerates the field-name drift seen across PMS API versions:
// arrival/checkIn/startDate and friends all appear in the wild.
type pmsBooking struct {
	ID        json.Number `json:"id"`
	BookingID json.Number `json:"bookingId"`

	GuestName string `json:"guestName"`
	Guest     *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"guest"`
	GuestEmail string `json:"guestEmail"`
	GuestPhone string `json:"guestPhone"`

	Arrival   string `json:"arrival"`
	CheckIn   string `json:"checkIn"`
	StartDate string `json:"startDate"`

	Departure string `json:"departure"`
	CheckOut  string `json:"checkOut"`
	EndDate   string `json:"endDate"`

	Adults   int `json:"adults"`
	Guests   int `json:"guests"`
	Children int `json:"children"`

	TotalPrice  float64 `json:"totalPrice"`
	TotalAmount float64 `json:"totalAmount"`

	Status  string `json:"status"`
	Notes   string `json:"notes"`
	Channel string `json:"channel"`
}

// decodePMSBookingList accepts the three shapes the PMS has shipped over
// time: a bare array, {"data":[...]} and {"bookings":[...]}.
func decodePMSBookingList(data []byte) ([]pmsBooking, error) {
	var list []pmsBooking
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Data     []pmsBooking `json:"data"`
		Bookings []pmsBooking `json:"bookings"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("pms booking list unreadable: %w", err)
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	if wrapped.Bookings != nil {
		return wrapped.Bookings, nil
	}
	return nil, errors.New("pms booking list in unknown shape")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (p pmsBooking) externalID() string {
	return firstNonEmpty(p.ID.String(), p.BookingID.String())
}

func (p pmsBooking) toBooking(accommodation string) (models.Booking, bool) {
	checkIn, errIn := time.Parse(dateLayout, firstNonEmpty(p.Arrival, p.CheckIn, p.StartDate))
	checkOut, errOut := time.Parse(dateLayout, firstNonEmpty(p.Departure, p.CheckOut, p.EndDate))
	if errIn != nil || errOut != nil {
		return models.Booking{}, false
	}

	externalID := p.externalID()
	if externalID == "" {
		return models.Booking{}, false
	}

	name := p.GuestName
	email := p.GuestEmail
	phone := p.GuestPhone
	if p.Guest != nil {
		name = firstNonEmpty(name, p.Guest.Name)
		email = firstNonEmpty(email, p.Guest.Email)
		phone = firstNonEmpty(phone, p.Guest.Phone)
	}

	guests := p.Adults
	if guests == 0 {
		guests = p.Guests
	}
	if guests == 0 {
		guests = 1
	}

	total := p.TotalPrice
	if total == 0 {
		total = p.TotalAmount
	}

	status := models.StatusConfirmed
	if strings.EqualFold(p.Status, "cancelled") || strings.EqualFold(p.Status, "canceled") {
		status = models.StatusCancelled
	}

	payment := models.PaymentCompleted
	if status == models.StatusCancelled {
		payment = models.PaymentRefunded
	}

	notes := p.Notes
	if p.Channel != "" {
		notes = strings.TrimSpace(notes + " [" + p.Channel + "]")
	}

	return models.Booking{
		ID:            "pms-" + externalID,
		Accommodation: accommodation,
		GuestName:     name,
		GuestEmail:    email,
		GuestPhone:    phone,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        guests,
		Children:      p.Children,
		TotalPrice:    total,
		Notes:         notes,
		Status:        status,
		PaymentStatus: payment,
		Source:        models.SourcePMS,
		PMSBookingID:  externalID,
	}, true
}
