package feeds

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const shortQuoteLen = 150

// TestimonialsData is the payload of the testimonials feed.
type TestimonialsData struct {
	Testimonials  []Testimonial `json:"testimonials"`
	TotalCount    int           `json:"totalCount"`
	AverageRating float64       `json:"averageRating"`
	VerifiedCount int           `json:"verifiedCount"`
	LastUpdated   string        `json:"lastUpdated"`
}

type Testimonial struct {
	ID        int    `json:"id"`
	Quote     string `json:"quote"`
	Author    string `json:"author"`
	Role      string `json:"role"`
	Community string `json:"community"`
	Verified  bool   `json:"verified"`
	Rating    int    `json:"rating"`
	Date      string `json:"date"`
	Avatar    string `json:"avatar,omitempty"`
}

type FormattedTestimonial struct {
	Testimonial
	ShortQuote  string `json:"shortQuote"`
	Initials    string `json:"initials"`
	DisplayDate string `json:"displayDate"`
	RatingStars string `json:"ratingStars"`
}

type TestimonialStats struct {
	Total            int     `json:"total"`
	Verified         int     `json:"verified"`
	AverageRating    float64 `json:"averageRating"`
	VerificationRate float64 `json:"verificationRate"`
	FormattedRating  string  `json:"formattedRating"`
	RatingStars      string  `json:"ratingStars"`
}

// TestimonialsView is the display model of the testimonials feed.
type TestimonialsView struct {
	Testimonials []FormattedTestimonial `json:"testimonials"`
	Stats        TestimonialStats       `json:"stats"`
}

// TestimonialsFreshFor is how long testimonials count as fresh.
const TestimonialsFreshFor = 30 * time.Minute

// Format builds the display card for t relative to now.
func (t Testimonial) Format(now time.Time) FormattedTestimonial {
	f := FormattedTestimonial{
		Testimonial: t,
		ShortQuote:  ShortQuote(t.Quote),
		Initials:    Initials(t.Author),
		RatingStars: Stars(t.Rating),
	}
	if d, ok := parseTime(t.Date); ok {
		f.DisplayDate = DaysAgo(d, now)
	}
	return f
}

// ShortQuote truncates q to 150 characters, appending an ellipsis when cut.
func ShortQuote(q string) string {
	if utf8.RuneCountInString(q) <= shortQuoteLen {
		return q
	}
	return string([]rune(q)[:shortQuoteLen]) + "..."
}

// Initials returns the upper-cased first letter of each word of name.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Stars renders a 0..5 rating as five filled or hollow stars.
func Stars(rating int) string {
	rating = max(0, min(rating, 5))
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// Stats summarises the collection.
func (d TestimonialsData) Stats() TestimonialStats {
	s := TestimonialStats{
		Total:           d.TotalCount,
		Verified:        d.VerifiedCount,
		AverageRating:   d.AverageRating,
		FormattedRating: fmt.Sprintf("%.1f", d.AverageRating),
	}
	if d.TotalCount > 0 {
		s.VerificationRate = float64(d.VerifiedCount) / float64(d.TotalCount)
	}

	whole := math.Floor(d.AverageRating)
	s.RatingStars = strings.Repeat("★", int(max(0, whole)))
	if d.AverageRating-whole >= 0.5 {
		s.RatingStars += "★"
	} else {
		s.RatingStars += "☆"
	}
	return s
}

// Spotlight picks one testimonial using intn, which must return a value in
// [0, n). It reports false for an empty collection.
func (d TestimonialsData) Spotlight(intn func(n int) int) (Testimonial, bool) {
	if len(d.Testimonials) == 0 {
		return Testimonial{}, false
	}
	return d.Testimonials[intn(len(d.Testimonials))], true
}

// View builds the full display model.
func (d TestimonialsData) View(now time.Time) TestimonialsView {
	list := make([]FormattedTestimonial, 0, len(d.Testimonials))
	for _, t := range d.Testimonials {
		list = append(list, t.Format(now))
	}
	return TestimonialsView{Testimonials: list, Stats: d.Stats()}
}
