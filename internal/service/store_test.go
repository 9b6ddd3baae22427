package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"microfinance-service/configs"
	"microfinance-service/internal/models"
	"microfinance-service/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres repositories. A
// transaction holds txMu for its whole run and restores a snapshot when fn
// fails, which is enough to observe atomicity and serialization in tests.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data memData
	fail map[string]error
}

type allocKey struct {
	dueID int
	emiID int
}

type assignKey struct {
	agentID  int
	planID   int
	category models.Category
}

type memData struct {
	seq         int
	users       map[int]models.User
	wallets     map[int]models.Wallet
	txns        []models.Transaction
	withdrawals []models.Withdrawal
	loans       map[int]models.Loan
	deposits    map[int]models.Deposit
	dues        map[int]models.DueRecord
	emis        map[int]models.EmiRecord
	allocs      map[allocKey]models.DueEmiConfig
	settings    map[string]models.Setting
	assigned    map[assignKey]bool
	loanPlans   map[int]models.LoanPlan
	depPlans    map[int]models.DepositPlan
}

func newMemStore() *memStore {
	return &memStore{
		data: memData{
			users:     map[int]models.User{},
			wallets:   map[int]models.Wallet{},
			loans:     map[int]models.Loan{},
			deposits:  map[int]models.Deposit{},
			dues:      map[int]models.DueRecord{},
			emis:      map[int]models.EmiRecord{},
			allocs:    map[allocKey]models.DueEmiConfig{},
			settings:  map[string]models.Setting{},
			assigned:  map[assignKey]bool{},
			loanPlans: map[int]models.LoanPlan{},
			depPlans:  map[int]models.DepositPlan{},
		},
		fail: map[string]error{},
	}
}

func (d memData) clone() memData {
	c := d
	c.users = copyMap(d.users)
	c.wallets = copyMap(d.wallets)
	c.txns = append([]models.Transaction(nil), d.txns...)
	c.withdrawals = append([]models.Withdrawal(nil), d.withdrawals...)
	c.loans = copyMap(d.loans)
	c.deposits = copyMap(d.deposits)
	c.dues = copyMap(d.dues)
	c.emis = copyMap(d.emis)
	c.allocs = copyMap(d.allocs)
	c.settings = copyMap(d.settings)
	c.assigned = copyMap(d.assigned)
	c.loanPlans = copyMap(d.loanPlans)
	c.depPlans = copyMap(d.depPlans)
	return c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (s *memStore) next() int {
	s.data.seq++
	return s.data.seq
}

// failOn makes the named repository method return err
func (s *memStore) failOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = err
}

func (s *memStore) repos() *repository.Repository {
	r := &repository.Repository{
		User:        memUsers{s},
		Wallet:      memWallets{s},
		Transaction: memTransactions{s},
		Withdrawal:  memWithdrawals{s},
		Loan:        memLoans{s},
		Deposit:     memDeposits{s},
		Due:         memDues{s},
		Emi:         memEmis{s},
		Plan:        memPlans{s},
		Setting:     memSettings{s},
		Assignment:  memAssignments{s},
	}
	r.Tx = memTx{s: s, repo: r}
	return r
}

type memTx struct {
	s    *memStore
	repo *repository.Repository
}

func (t memTx) WithinTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	saved := t.s.data.clone()
	t.s.mu.Unlock()

	inner := *t.repo
	inner.Tx = joinedTx{repo: &inner}

	if err := fn(&inner); err != nil {
		t.s.mu.Lock()
		t.s.data = saved
		t.s.mu.Unlock()
		return err
	}
	return nil
}

type joinedTx struct {
	repo *repository.Repository
}

func (j joinedTx) WithinTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	return fn(j.repo)
}

// --- seeding helpers

func (s *memStore) addUser(name, phone string, role models.Role) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next()
	s.data.users[id] = models.User{ID: id, Name: name, Phone: phone, Role: role}
	return id
}

func (s *memStore) addWallet(userID int, balance string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next()
	s.data.wallets[id] = models.Wallet{ID: id, UserID: userID, Balance: decimal.RequireFromString(balance)}
	return id
}

func (s *memStore) putLoan(loan models.Loan) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loan.ID == 0 {
		loan.ID = s.next()
	}
	s.data.loans[loan.ID] = loan
	return loan.ID
}

func (s *memStore) putDeposit(deposit models.Deposit) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deposit.ID == 0 {
		deposit.ID = s.next()
	}
	s.data.deposits[deposit.ID] = deposit
	return deposit.ID
}

func (s *memStore) putDue(due models.DueRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	due.ID = s.next()
	s.data.dues[due.ID] = due
	return due.ID
}

func (s *memStore) loan(id int) models.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.loans[id]
}

func (s *memStore) deposit(id int) models.Deposit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.deposits[id]
}

func (s *memStore) due(id int) models.DueRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.dues[id]
}

func (s *memStore) walletOf(userID int) models.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.data.wallets {
		if w.UserID == userID {
			return w
		}
	}
	return models.Wallet{}
}

func (s *memStore) transactionsOf(walletID int) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, t := range s.data.txns {
		if t.WalletID == walletID {
			out = append(out, t)
		}
	}
	return out
}

func (s *memStore) countRows() (emis, allocs, txns int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.emis), len(s.data.allocs), len(s.data.txns)
}

// --- users

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, user *models.User) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["User.Create"]; err != nil {
		return 0, err
	}
	u := *user
	u.ID = r.s.next()
	r.s.data.users[u.ID] = u
	return u.ID, nil
}

func (r memUsers) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	return &u, nil
}

func (r memUsers) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Phone == phone {
			u := u
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", phone, models.ErrNotFound)
}

// --- wallets

type memWallets struct{ s *memStore }

func (r memWallets) Create(ctx context.Context, wallet *models.Wallet) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["Wallet.Create"]; err != nil {
		return 0, err
	}
	w := *wallet
	w.ID = r.s.next()
	r.s.data.wallets[w.ID] = w
	return w.ID, nil
}

func (r memWallets) GetByUserID(ctx context.Context, userID int) (*models.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.data.wallets {
		if w.UserID == userID {
			w := w
			return &w, nil
		}
	}
	return nil, fmt.Errorf("wallet of user %d: %w", userID, models.ErrNotFound)
}

func (r memWallets) Adjust(ctx context.Context, walletID int, delta decimal.Decimal) (*models.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.data.wallets[walletID]
	if !ok {
		return nil, fmt.Errorf("wallet %d: %w", walletID, models.ErrNotFound)
	}
	balance := w.Balance.Add(delta)
	if balance.IsNegative() {
		return nil, models.ErrInsufficientFunds
	}
	w.Balance = balance
	r.s.data.wallets[walletID] = w
	return &w, nil
}

// --- transactions and withdrawals

type memTransactions struct{ s *memStore }

func (r memTransactions) Create(ctx context.Context, txn *models.Transaction) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["Transaction.Create"]; err != nil {
		return 0, err
	}
	t := *txn
	t.ID = r.s.next()
	r.s.data.txns = append(r.s.data.txns, t)
	return t.ID, nil
}

func (r memTransactions) GetByWalletID(ctx context.Context, walletID int) ([]*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Transaction
	for i := len(r.s.data.txns) - 1; i >= 0; i-- {
		if t := r.s.data.txns[i]; t.WalletID == walletID {
			out = append(out, &t)
		}
	}
	return out, nil
}

type memWithdrawals struct{ s *memStore }

func (r memWithdrawals) Create(ctx context.Context, withdrawal *models.Withdrawal) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w := *withdrawal
	w.ID = r.s.next()
	r.s.data.withdrawals = append(r.s.data.withdrawals, w)
	return w.ID, nil
}

func (r memWithdrawals) GetByWalletID(ctx context.Context, walletID int) ([]*models.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Withdrawal
	for _, w := range r.s.data.withdrawals {
		if w.WalletID == walletID {
			w := w
			out = append(out, &w)
		}
	}
	return out, nil
}

// --- loans and deposits

type memLoans struct{ s *memStore }

func (r memLoans) Create(ctx context.Context, loan *models.Loan) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l := *loan
	l.ID = r.s.next()
	r.s.data.loans[l.ID] = l
	return l.ID, nil
}

func (r memLoans) GetByID(ctx context.Context, id int) (*models.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.loans[id]
	if !ok {
		return nil, fmt.Errorf("loan %d: %w", id, models.ErrNotFound)
	}
	return &l, nil
}

func (r memLoans) GetByIDForUpdate(ctx context.Context, id int) (*models.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r memLoans) GetByUserID(ctx context.Context, userID int) ([]*models.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Loan
	for _, l := range r.s.data.loans {
		if l.UserID == userID {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memLoans) CountPending(ctx context.Context, userID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, l := range r.s.data.loans {
		if l.UserID == userID && l.Status == models.PlanStatusPending {
			n++
		}
	}
	return n, nil
}

func (r memLoans) Update(ctx context.Context, loan *models.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["Loan.Update"]; err != nil {
		return err
	}
	if _, ok := r.s.data.loans[loan.ID]; !ok {
		return fmt.Errorf("loan %d: %w", loan.ID, models.ErrNotFound)
	}
	r.s.data.loans[loan.ID] = *loan
	return nil
}

type memDeposits struct{ s *memStore }

func (r memDeposits) Create(ctx context.Context, deposit *models.Deposit) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := *deposit
	d.ID = r.s.next()
	r.s.data.deposits[d.ID] = d
	return d.ID, nil
}

func (r memDeposits) GetByID(ctx context.Context, id int) (*models.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.deposits[id]
	if !ok {
		return nil, fmt.Errorf("deposit %d: %w", id, models.ErrNotFound)
	}
	return &d, nil
}

func (r memDeposits) GetByIDForUpdate(ctx context.Context, id int) (*models.Deposit, error) {
	return r.GetByID(ctx, id)
}

func (r memDeposits) GetByUserID(ctx context.Context, userID int) ([]*models.Deposit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Deposit
	for _, d := range r.s.data.deposits {
		if d.UserID == userID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memDeposits) CountPending(ctx context.Context, userID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, d := range r.s.data.deposits {
		if d.UserID == userID && d.Status == models.PlanStatusPending {
			n++
		}
	}
	return n, nil
}

func (r memDeposits) Update(ctx context.Context, deposit *models.Deposit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.deposits[deposit.ID]; !ok {
		return fmt.Errorf("deposit %d: %w", deposit.ID, models.ErrNotFound)
	}
	r.s.data.deposits[deposit.ID] = *deposit
	return nil
}

func (r memDeposits) MarkMatured(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, d := range r.s.data.deposits {
		if d.Status == models.PlanStatusActive && d.MaturityDate != nil && d.MaturityDate.Before(before) {
			d.Status = models.PlanStatusMatured
			r.s.data.deposits[id] = d
			n++
		}
	}
	return n, nil
}

// --- dues

type memDues struct{ s *memStore }

func sortDues(dues []*models.DueRecord) {
	sort.Slice(dues, func(i, j int) bool {
		if dues[i].DueDate.Equal(dues[j].DueDate) {
			return dues[i].ID < dues[j].ID
		}
		return dues[i].DueDate.Before(dues[j].DueDate)
	})
}

func (r memDues) CreateBatch(ctx context.Context, dues []*models.DueRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, due := range dues {
		due.ID = r.s.next()
		r.s.data.dues[due.ID] = *due
	}
	return nil
}

func (r memDues) GetByPlan(ctx context.Context, planID int, category models.Category) ([]*models.DueRecord, error) {
	return r.filter(func(d models.DueRecord) bool {
		return d.PlanID == planID && d.Category == category
	}), nil
}

func (r memDues) GetOutstanding(ctx context.Context, planID int, category models.Category) ([]*models.DueRecord, error) {
	return r.filter(func(d models.DueRecord) bool {
		return d.PlanID == planID && d.Category == category && d.Status != models.DueStatusPaid
	}), nil
}

func (r memDues) GetByIDsForUpdate(ctx context.Context, ids []int) ([]*models.DueRecord, error) {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return r.filter(func(d models.DueRecord) bool { return want[d.ID] }), nil
}

func (r memDues) filter(keep func(models.DueRecord) bool) []*models.DueRecord {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.DueRecord
	for _, d := range r.s.data.dues {
		if keep(d) {
			d := d
			out = append(out, &d)
		}
	}
	sortDues(out)
	return out
}

func (r memDues) Update(ctx context.Context, due *models.DueRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["Due.Update"]; err != nil {
		return err
	}
	if due.PaidAmount.IsNegative() || due.PaidAmount.GreaterThan(due.EmiAmount) {
		return fmt.Errorf("due %d paid amount out of range: %w", due.ID, models.ErrIntegrity)
	}
	r.s.data.dues[due.ID] = *due
	return nil
}

func (r memDues) MarkOverdue(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, d := range r.s.data.dues {
		if d.Status == models.DueStatusDue && d.DueDate.Before(before) {
			d.Status = models.DueStatusOverdue
			r.s.data.dues[id] = d
			n++
		}
	}
	return n, nil
}

// --- emi records

type memEmis struct{ s *memStore }

func (r memEmis) Create(ctx context.Context, emi *models.EmiRecord) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e := *emi
	e.ID = r.s.next()
	r.s.data.emis[e.ID] = e
	return e.ID, nil
}

func (r memEmis) GetByID(ctx context.Context, id int) (*models.EmiRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.emis[id]
	if !ok {
		return nil, fmt.Errorf("emi record %d: %w", id, models.ErrNotFound)
	}
	return &e, nil
}

func (r memEmis) GetByIDForUpdate(ctx context.Context, id int) (*models.EmiRecord, error) {
	return r.GetByID(ctx, id)
}

func (r memEmis) list(keep func(models.EmiRecord) bool) []*models.EmiRecord {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.EmiRecord
	for _, e := range r.s.data.emis {
		if keep(e) {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memEmis) GetByPlan(ctx context.Context, planID int, category models.Category) ([]*models.EmiRecord, error) {
	return r.list(func(e models.EmiRecord) bool { return e.PlanID == planID && e.Category == category }), nil
}

func (r memEmis) GetByDateRange(ctx context.Context, from, to time.Time) ([]*models.EmiRecord, error) {
	return r.list(func(e models.EmiRecord) bool { return !e.PayDate.Before(from) && e.PayDate.Before(to) }), nil
}

func (r memEmis) Update(ctx context.Context, emi *models.EmiRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.emis[emi.ID]; !ok {
		return fmt.Errorf("emi record %d: %w", emi.ID, models.ErrNotFound)
	}
	r.s.data.emis[emi.ID] = *emi
	return nil
}

func (r memEmis) GetAllocations(ctx context.Context, emiID int) ([]*models.DueEmiConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.DueEmiConfig
	for k, c := range r.s.data.allocs {
		if k.emiID == emiID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueID < out[j].DueID })
	return out, nil
}

func (r memEmis) UpsertAllocation(ctx context.Context, cfg *models.DueEmiConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["Emi.UpsertAllocation"]; err != nil {
		return err
	}
	k := allocKey{dueID: cfg.DueID, emiID: cfg.EmiID}
	c := *cfg
	if old, ok := r.s.data.allocs[k]; ok {
		c.ID = old.ID
	} else {
		c.ID = r.s.next()
	}
	r.s.data.allocs[k] = c
	return nil
}

func (r memEmis) GetCollectedForUpdate(ctx context.Context, agentID int) ([]*models.EmiRecord, error) {
	return r.list(func(e models.EmiRecord) bool {
		return e.CollectedBy == agentID && e.Status == models.EmiStatusCollected
	}), nil
}

func (r memEmis) MarkHold(ctx context.Context, ids []int, holdBy int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		e := r.s.data.emis[id]
		e.Status = models.EmiStatusHold
		e.HoldBy = &holdBy
		r.s.data.emis[id] = e
	}
	return nil
}

func (r memEmis) PendingByCollector(ctx context.Context, limit, offset int) ([]*models.PendingCollection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byCollector := map[int]*models.PendingCollection{}
	for _, e := range r.s.data.emis {
		if e.Status != models.EmiStatusCollected {
			continue
		}
		p, ok := byCollector[e.CollectedBy]
		if !ok {
			p = &models.PendingCollection{CollectorID: e.CollectedBy, CollectorName: r.s.data.users[e.CollectedBy].Name}
			byCollector[e.CollectedBy] = p
		}
		p.Records++
		p.Amount = p.Amount.Add(e.Amount)
		p.LateFee = p.LateFee.Add(e.LateFee)
	}

	var out []*models.PendingCollection
	for _, p := range byCollector {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CollectorID < out[j].CollectorID })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memEmis) PendingTotal(ctx context.Context) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := decimal.Zero
	for _, e := range r.s.data.emis {
		if e.Status == models.EmiStatusCollected {
			total = total.Add(e.Amount).Add(e.LateFee)
		}
	}
	return total, nil
}

func (r memEmis) SummaryByCategory(ctx context.Context, from, to time.Time) ([]*models.CategorySummary, error) {
	records, _ := r.GetByDateRange(ctx, from, to)
	byCategory := map[models.Category]*models.CategorySummary{}
	for _, e := range records {
		c, ok := byCategory[e.Category]
		if !ok {
			c = &models.CategorySummary{Category: e.Category}
			byCategory[e.Category] = c
		}
		c.Records++
		c.Amount = c.Amount.Add(e.Amount)
		c.LateFee = c.LateFee.Add(e.LateFee)
	}

	var out []*models.CategorySummary
	for _, c := range byCategory {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// --- gorm-backed stores

type memPlans struct{ s *memStore }

func (r memPlans) GetLoanPlan(ctx context.Context, id int) (*models.LoanPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.loanPlans[id]
	if !ok {
		return nil, fmt.Errorf("loan plan %d: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

func (r memPlans) GetDepositPlan(ctx context.Context, id int) (*models.DepositPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.depPlans[id]
	if !ok {
		return nil, fmt.Errorf("deposit plan %d: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

type memSettings struct{ s *memStore }

func (r memSettings) Get(ctx context.Context, key string) (*models.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.settings[key]
	if !ok {
		return nil, fmt.Errorf("setting %s: %w", key, models.ErrNotFound)
	}
	return &v, nil
}

func (r memSettings) Upsert(ctx context.Context, setting *models.Setting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.settings[setting.Key] = *setting
	return nil
}

type memAssignments struct{ s *memStore }

func (r memAssignments) Assign(ctx context.Context, a *models.AgentAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.assigned[assignKey{a.AgentID, a.PlanID, a.Category}] = true
	return nil
}

func (r memAssignments) Unassign(ctx context.Context, agentID, planID int, category models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.data.assigned, assignKey{agentID, planID, category})
	return nil
}

func (r memAssignments) IsAssigned(ctx context.Context, agentID, planID int, category models.Category) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.data.assigned[assignKey{agentID, planID, category}], nil
}

// --- notifier and dependencies

type sentSMS struct {
	phone    string
	template string
}

type mockNotifier struct {
	mu   sync.Mutex
	sms  []sentSMS
	sent chan sentSMS
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{sent: make(chan sentSMS, 32)}
}

func (m *mockNotifier) SendSMS(ctx context.Context, phone, templateID string, values []TemplateValue) error {
	m.mu.Lock()
	m.sms = append(m.sms, sentSMS{phone: phone, template: templateID})
	m.mu.Unlock()
	select {
	case m.sent <- sentSMS{phone: phone, template: templateID}:
	default:
	}
	return nil
}

func (m *mockNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	return nil
}

// waitSMS returns the next message sent, or fails after a second
func (m *mockNotifier) waitSMS() (sentSMS, bool) {
	select {
	case s := <-m.sent:
		return s, true
	case <-time.After(time.Second):
		return sentSMS{}, false
	}
}

var testNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func testDeps(store *memStore, notifier NotificationService) Dependencies {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return Dependencies{
		Repos:  store.repos(),
		Logger: logger,
		Config: &configs.Config{
			JWT:    configs.JWTConfig{Secret: "test-secret"},
			Email:  configs.EmailConfig{CompanyName: "Test MFI"},
			Ledger: configs.LedgerConfig{LoanPrefix: "LN", RDPrefix: "RD", FDPrefix: "FD"},
		},
		Notifier: notifier,
		Locks:    NewPlanLocks(),
		Clock:    func() time.Time { return testNow },
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
