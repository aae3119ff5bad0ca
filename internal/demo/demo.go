// Package demo generates a realistic history of transactions, goals and
// debts so every analytics operation has something to work on.
package demo

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/store"
	"github.com/sirupsen/logrus"
)

// Options controls the generated history.
type Options struct {
	Months int
	Seed   int64
	// Now anchors the history; zero means time.Now.
	Now time.Time
}

// Counts reports how many records Seed wrote.
type Counts struct {
	Expenses int
	Incomes  int
	Goals    int
	Debts    int
}

type template struct {
	description string
	minAmount   float64
	maxAmount   float64
	category    string
}

var monthlyBills = []template{
	{"Rent payment", 2200, 2200, "housing"},
	{"Electricity bill", 120, 220, "utilities"},
	{"Internet bill", 89, 89, "utilities"},
	{"Phone bill", 65, 65, "utilities"},
	{"Car insurance", 145, 145, "transportation"},
	{"Netflix", 22.99, 22.99, "entertainment"},
	{"Spotify", 12.99, 12.99, "entertainment"},
	{"Gym membership", 65, 65, "healthcare"},
}

var weeklyBills = []template{
	{"Grocery shopping", 80, 200, "food"},
	{"Petrol", 55, 110, "transportation"},
}

var discretionary = []template{
	{"Coffee", 4.5, 8, "food"},
	{"Lunch out", 15, 35, "food"},
	{"Dinner at restaurant", 45, 120, "food"},
	{"Uber ride", 12, 45, "transportation"},
	{"Train ticket", 8, 25, "transportation"},
	{"Movie tickets", 18, 40, "entertainment"},
	{"Books", 15, 45, "entertainment"},
	{"Clothing", 40, 200, "shopping"},
	{"Home supplies", 15, 80, "shopping"},
	{"Pharmacy", 10, 60, "healthcare"},
}

type seeder struct {
	st        store.Store
	userID    string
	accountID string
	rng       *rand.Rand
	start     time.Time
	now       time.Time
	counts    Counts
}

// Seed creates the user if needed and writes opts.Months of history ending
// at opts.Now. The same seed always yields the same records.
func Seed(ctx context.Context, st store.Store, userID string, opts Options, logger *logrus.Entry) (Counts, error) {
	if opts.Months <= 0 {
		return Counts{}, fmt.Errorf("months must be positive")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = model.Day(now)

	if err := st.CreateUser(ctx, &model.User{ID: userID, DisplayName: "Demo User", CreatedAt: now}); err != nil {
		return Counts{}, fmt.Errorf("failed to create user: %w", err)
	}

	s := &seeder{
		st:     st,
		userID: userID,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		start:  now.AddDate(0, -opts.Months, 0),
		now:    now,
	}
	steps := []func(context.Context) error{s.expenses, s.incomes, s.goals, s.debts}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return s.counts, err
		}
	}
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"expenses": s.counts.Expenses,
			"incomes":  s.counts.Incomes,
		}).Info("seeded demo history")
	}
	return s.counts, nil
}

func (s *seeder) amount(t template) float64 {
	v := t.minAmount + s.rng.Float64()*(t.maxAmount-t.minAmount)
	return math.Round(v*100) / 100
}

func (s *seeder) create(ctx context.Context, kind model.Kind, desc, category string, amount float64, date time.Time) error {
	err := s.st.CreateTransaction(ctx, &model.Transaction{
		UserID:      s.userID,
		AccountID:   s.accountID,
		Kind:        kind,
		Amount:      amount,
		Category:    category,
		Date:        date,
		Description: desc,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s %q: %w", kind, desc, err)
	}
	if kind == model.KindIncome {
		s.counts.Incomes++
	} else {
		s.counts.Expenses++
	}
	return nil
}

func (s *seeder) expenses(ctx context.Context) error {
	account := &model.Account{UserID: s.userID, Name: "Everyday", Type: "checking"}
	if err := s.st.CreateAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	s.accountID = account.ID

	for _, t := range monthlyBills {
		for d := s.start.AddDate(0, 0, s.rng.Intn(3)); d.Before(s.now); d = d.AddDate(0, 1, 0) {
			if err := s.create(ctx, model.KindExpense, t.description, t.category, s.amount(t), d); err != nil {
				return err
			}
		}
	}
	for _, t := range weeklyBills {
		for d := s.start; d.Before(s.now); d = d.AddDate(0, 0, 7) {
			if err := s.create(ctx, model.KindExpense, t.description, t.category, s.amount(t), d); err != nil {
				return err
			}
		}
	}

	for d := s.start; d.Before(s.now); d = d.AddDate(0, 0, 1) {
		n := 1 + s.rng.Intn(3)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			n++
		}
		for i := 0; i < n; i++ {
			t := discretionary[s.rng.Intn(len(discretionary))]
			amt := s.amount(t)
			// roughly one purchase in fifty is a splurge
			if s.rng.Intn(50) == 0 {
				amt = math.Round(amt*(3+s.rng.Float64()*2)*100) / 100
			}
			if err := s.create(ctx, model.KindExpense, t.description, t.category, amt, d); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *seeder) incomes(ctx context.Context) error {
	for m := 0; ; m++ {
		payday := time.Date(s.start.Year(), s.start.Month()+time.Month(m), 15, 0, 0, 0, 0, time.UTC)
		if !payday.Before(s.now) {
			break
		}
		if payday.Before(s.start) {
			continue
		}
		salary := math.Round((8500+s.rng.Float64()*200-100)*100) / 100
		if err := s.create(ctx, model.KindIncome, "Salary", "salary", salary, payday); err != nil {
			return err
		}
		if m%3 == 1 {
			freelance := math.Round((800+s.rng.Float64()*1200)*100) / 100
			if err := s.create(ctx, model.KindIncome, "Freelance project", "freelance", freelance, payday.AddDate(0, 0, 5)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *seeder) goals(ctx context.Context) error {
	goals := []*model.Goal{
		{UserID: s.userID, Title: "Emergency fund", TargetAmount: 15000, CurrentAmount: 6000},
		{UserID: s.userID, Title: "Holiday", TargetAmount: 4000, CurrentAmount: 500, TargetDate: s.now.AddDate(0, 8, 0)},
	}
	for _, g := range goals {
		if err := s.st.CreateGoal(ctx, g); err != nil {
			return fmt.Errorf("failed to create goal %q: %w", g.Title, err)
		}
		s.counts.Goals++
	}
	return nil
}

func (s *seeder) debts(ctx context.Context) error {
	debts := []*model.Debt{
		{UserID: s.userID, Name: "Credit card", TotalAmount: 5000, RemainingAmount: 3200, InterestRate: 19.9, MinimumPayment: 120},
		{UserID: s.userID, Name: "Car loan", TotalAmount: 18000, RemainingAmount: 9500, InterestRate: 6.5, MinimumPayment: 380},
	}
	for _, d := range debts {
		if err := s.st.CreateDebt(ctx, d); err != nil {
			return fmt.Errorf("failed to create debt %q: %w", d.Name, err)
		}
		s.counts.Debts++
	}
	return nil
}
