// Package synth produces deterministic synthetic engagement data used for
// demos and end-to-end pipeline tests: a raw user-day activity table and a
// daily feature table with rolling engagement windows.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/churnflow/churnflow/internal/dataset"
	"github.com/churnflow/churnflow/internal/domain"
)

var (
	countries = []string{"IN", "US", "UK", "CA", "AU", "SG"}
	sources   = []string{"organic", "referral", "ads", "youtube", "community"}
)

type Options struct {
	Users int
	Days  int
	// StartDate is the first generated activity day.
	StartDate time.Time
	Seed      int64

	PaidRatio     float64
	ChurnBaseRate float64
}

type Output struct {
	Activity []domain.ActivityRecord
	// Features has one row per user-day with rolling engagement windows and
	// static user attributes joined in.
	Features *dataset.Frame
}

type userProfile struct {
	id         int64
	signup     time.Time
	paid       bool
	country    string
	source     string
	engagement float64
	skill      float64
	// churnDay is the first day with no further activity; nil means the
	// user stays active through the whole range.
	churnDay *time.Time
}

// Generate builds the synthetic dataset. The same options always produce
// the same data.
func Generate(opts Options) (Output, error) {
	if opts.Users <= 0 {
		opts.Users = 500
	}
	if opts.Days <= 0 {
		opts.Days = 90
	}
	if opts.StartDate.IsZero() {
		opts.StartDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if opts.PaidRatio <= 0 || opts.PaidRatio >= 1 {
		opts.PaidRatio = 0.3
	}
	if opts.ChurnBaseRate <= 0 || opts.ChurnBaseRate >= 1 {
		opts.ChurnBaseRate = 0.35
	}
	if opts.Days < 2 {
		return Output{}, fmt.Errorf("synth: need at least 2 days, got %d", opts.Days)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	users := buildUsers(rng, opts)

	var activity []domain.ActivityRecord
	perUserActivity := make([][]domain.ActivityRecord, len(users))
	for i, u := range users {
		rows := simulateUser(rng, u, opts)
		perUserActivity[i] = rows
		activity = append(activity, rows...)
	}

	features, err := buildFeatureFrame(rng, users, perUserActivity, opts)
	if err != nil {
		return Output{}, err
	}
	return Output{Activity: activity, Features: features}, nil
}

func buildUsers(rng *rand.Rand, opts Options) []userProfile {
	signupSpread := opts.Days / 3
	if signupSpread < 30 {
		signupSpread = 30
	}
	end := opts.StartDate.AddDate(0, 0, opts.Days-1)

	users := make([]userProfile, opts.Users)
	for i := range users {
		u := userProfile{
			id:         int64(i + 1),
			signup:     opts.StartDate.AddDate(0, 0, -rng.Intn(signupSpread)),
			paid:       rng.Float64() < opts.PaidRatio,
			country:    countries[rng.Intn(len(countries))],
			source:     sources[rng.Intn(len(sources))],
			engagement: (rng.Float64() + rng.Float64()) / 2,
			skill:      30 + rng.Float64()*65,
		}

		base := opts.ChurnBaseRate
		if u.paid {
			base *= 0.75
		}
		engagementFactor := math.Pow(1-u.engagement, 1.6)
		churnProb := math.Min(0.95, base*(0.4+1.4*engagementFactor))
		if rng.Float64() < churnProb {
			offset := opts.Days/4 + rng.Intn(opts.Days-opts.Days/4)
			day := opts.StartDate.AddDate(0, 0, offset)
			if day.After(end) {
				day = end
			}
			u.churnDay = &day
		}
		users[i] = u
	}
	return users
}

func simulateUser(rng *rand.Rand, u userProfile, opts Options) []domain.ActivityRecord {
	rows := make([]domain.ActivityRecord, 0, opts.Days)
	activeProb := 0.15 + 0.8*u.engagement
	for d := 0; d < opts.Days; d++ {
		day := opts.StartDate.AddDate(0, 0, d)
		rec := domain.ActivityRecord{UserID: u.id, AsOfDate: day}
		churned := u.churnDay != nil && !day.Before(*u.churnDay)
		if !churned && rng.Float64() < activeProb {
			rec.IsActiveDay = true
			rec.Sessions = float64(1 + rng.Intn(3))
			rec.WatchMinutes = rec.Sessions * (5 + rng.Float64()*40)
			if rng.Float64() < 0.4 {
				rec.QuizAttempts = float64(1 + rng.Intn(2))
			}
		}
		rows = append(rows, rec)
	}
	return rows
}

// buildFeatureFrame derives rolling-window engagement features per user-day
// from the simulated activity, joined with the static user attributes.
func buildFeatureFrame(rng *rand.Rand, users []userProfile, activity [][]domain.ActivityRecord, opts Options) (*dataset.Frame, error) {
	n := opts.Users * opts.Days
	userID := make([]float64, 0, n)
	asOf := make([]string, 0, n)
	signup := make([]string, 0, n)
	plan := make([]string, 0, n)
	isPaid := make([]float64, 0, n)
	country := make([]string, 0, n)
	source := make([]string, 0, n)
	daysSinceSignup := make([]float64, 0, n)
	daysSinceLast := make([]float64, 0, n)
	sessions7 := make([]float64, 0, n)
	watch7 := make([]float64, 0, n)
	watch14 := make([]float64, 0, n)
	watch30 := make([]float64, 0, n)
	quiz7 := make([]float64, 0, n)
	quizScore7 := make([]float64, 0, n)

	for ui, u := range users {
		rows := activity[ui]
		sessionsCS := prefixSum(rows, func(r domain.ActivityRecord) float64 { return r.Sessions })
		watchCS := prefixSum(rows, func(r domain.ActivityRecord) float64 { return r.WatchMinutes })
		quizCS := prefixSum(rows, func(r domain.ActivityRecord) float64 { return r.QuizAttempts })

		lastActive := -1
		planName := "free"
		if u.paid {
			planName = "paid"
		}
		for d, rec := range rows {
			if rec.IsActiveDay {
				lastActive = d
			}
			userID = append(userID, float64(u.id))
			asOf = append(asOf, rec.AsOfDate.Format(dataset.DateLayout))
			signup = append(signup, u.signup.Format(dataset.DateLayout))
			plan = append(plan, planName)
			if u.paid {
				isPaid = append(isPaid, 1)
			} else {
				isPaid = append(isPaid, 0)
			}
			country = append(country, u.country)
			source = append(source, u.source)
			daysSinceSignup = append(daysSinceSignup, rec.AsOfDate.Sub(u.signup).Hours()/24)
			if lastActive < 0 {
				daysSinceLast = append(daysSinceLast, math.NaN())
			} else {
				daysSinceLast = append(daysSinceLast, float64(d-lastActive))
			}
			sessions7 = append(sessions7, windowSum(sessionsCS, d, 7))
			watch7 = append(watch7, windowSum(watchCS, d, 7))
			watch14 = append(watch14, windowSum(watchCS, d, 14))
			watch30 = append(watch30, windowSum(watchCS, d, 30))
			q7 := windowSum(quizCS, d, 7)
			quiz7 = append(quiz7, q7)
			if q7 > 0 {
				score := u.skill + rng.NormFloat64()*8
				quizScore7 = append(quizScore7, clamp(score, 0, 100))
			} else {
				quizScore7 = append(quizScore7, math.NaN())
			}
		}
	}

	f := dataset.NewFrame()
	cols := []*dataset.Column{
		{Name: "user_id", Type: dataset.Numeric, Nums: userID},
		{Name: "as_of_date", Type: dataset.Categorical, Cats: asOf},
		{Name: "signup_date", Type: dataset.Categorical, Cats: signup},
		{Name: "plan", Type: dataset.Categorical, Cats: plan},
		{Name: "is_paid", Type: dataset.Numeric, Nums: isPaid},
		{Name: "country", Type: dataset.Categorical, Cats: country},
		{Name: "marketing_source", Type: dataset.Categorical, Cats: source},
		{Name: "days_since_signup", Type: dataset.Numeric, Nums: daysSinceSignup},
		{Name: "days_since_last_activity", Type: dataset.Numeric, Nums: daysSinceLast},
		{Name: "sessions_7d", Type: dataset.Numeric, Nums: sessions7},
		{Name: "watch_minutes_7d", Type: dataset.Numeric, Nums: watch7},
		{Name: "watch_minutes_14d", Type: dataset.Numeric, Nums: watch14},
		{Name: "watch_minutes_30d", Type: dataset.Numeric, Nums: watch30},
		{Name: "quiz_attempts_7d", Type: dataset.Numeric, Nums: quiz7},
		{Name: "quiz_avg_score_7d", Type: dataset.Numeric, Nums: quizScore7},
	}
	for _, col := range cols {
		if err := f.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func prefixSum(rows []domain.ActivityRecord, value func(domain.ActivityRecord) float64) []float64 {
	cs := make([]float64, len(rows)+1)
	for i, r := range rows {
		cs[i+1] = cs[i] + value(r)
	}
	return cs
}

// windowSum is the trailing w-day sum ending at day d inclusive.
func windowSum(cs []float64, d, w int) float64 {
	lo := d + 1 - w
	if lo < 0 {
		lo = 0
	}
	return cs[d+1] - cs[lo]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
