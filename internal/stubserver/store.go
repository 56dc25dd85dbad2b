package stubserver

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apierrors "github.com/fairpay-app/fairpay-client-go/internal/stubserver/errors"
)

// Демо-пользователь, с которым стаб поднимается сразу пригодным
// для ручной проверки клиента.
const (
	seedUserName     = "Usuário Demo"
	seedUserEmail    = "demo@fairpay.com"
	seedUserPassword = "demo123"
)

type storedUser struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
}

type storedMember struct {
	UserID   int64
	Role     string
	JoinedAt time.Time
}

type storedGroup struct {
	ID          int64
	Name        string
	Description string
	ImageURL    string
	CreatedAt   time.Time
	CreatedBy   int64
	Members     []storedMember
}

type storedExpense struct {
	ID           int64
	GroupID      int64
	Description  string
	TotalAmount  float64
	Date         string
	PaidBy       int64
	CreatedBy    int64
	Participants []int64
	CreatedAt    time.Time
}

type storedPayment struct {
	ID          int64
	GroupID     int64
	FromUserID  int64
	ToUserID    int64
	Amount      float64
	Date        string
	Description string
	CreatedAt   time.Time
}

type storedInvite struct {
	Token     string
	GroupID   int64
	ExpiresAt time.Time
}

// refreshRecord — refresh-токен в сторе. Хранится только sha256-хэш,
// сам токен существует лишь у клиента.
type refreshRecord struct {
	UserID    int64
	ExpiresAt time.Time
}

// store — потокобезопасное хранилище стаба в памяти.
type store struct {
	mu sync.Mutex

	users    map[int64]*storedUser
	byEmail  map[string]int64
	groups   map[int64]*storedGroup
	expenses map[int64]*storedExpense
	payments map[int64]*storedPayment
	invites  map[string]*storedInvite
	refresh  map[string]refreshRecord

	nextID int64
}

func newStore() (*store, error) {
	s := &store{
		users:    make(map[int64]*storedUser),
		byEmail:  make(map[string]int64),
		groups:   make(map[int64]*storedGroup),
		expenses: make(map[int64]*storedExpense),
		payments: make(map[int64]*storedPayment),
		invites:  make(map[string]*storedInvite),
		refresh:  make(map[string]refreshRecord),
	}

	if _, err := s.CreateUser(seedUserName, seedUserEmail, seedUserPassword); err != nil {
		return nil, fmt.Errorf("stubserver: seed user: %w", err)
	}

	return s, nil
}

func (s *store) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

// CreateUser регистрирует пользователя с bcrypt-хэшем пароля.
func (s *store) CreateUser(name, email, password string) (*storedUser, error) {
	const op = "stubserver.store.CreateUser"

	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrAlreadyExists)
	}

	u := &storedUser{
		ID:           s.nextIDLocked(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID

	return u, nil
}

// Authenticate проверяет пару email/пароль.
func (s *store) Authenticate(email, password string) (*storedUser, error) {
	const op = "stubserver.store.Authenticate"

	s.mu.Lock()
	id, ok := s.byEmail[email]
	var u *storedUser
	if ok {
		u = s.users[id]
	}
	s.mu.Unlock()

	if u == nil {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrInvalidCredentials)
	}

	return u, nil
}

func (s *store) UserByID(id int64) (*storedUser, error) {
	const op = "stubserver.store.UserByID"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrNotFound)
	}

	return u, nil
}

func (s *store) UserByEmail(email string) (*storedUser, error) {
	const op = "stubserver.store.UserByEmail"

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrNotFound)
	}

	return s.users[id], nil
}

// SaveRefresh регистрирует хэш refresh-токена.
func (s *store) SaveRefresh(hash string, userID int64, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[hash] = refreshRecord{UserID: userID, ExpiresAt: expiresAt}
}

// ConsumeRefresh снимает refresh-токен и возвращает владельца.
// Токен одноразовый: повторное предъявление не проходит.
func (s *store) ConsumeRefresh(hash string) (int64, error) {
	const op = "stubserver.store.ConsumeRefresh"

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.refresh[hash]
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, apierrors.ErrUnauthenticated)
	}

	delete(s.refresh, hash)

	if time.Now().After(rec.ExpiresAt) {
		return 0, fmt.Errorf("%s: %w", op, apierrors.ErrTokenExpired)
	}

	return rec.UserID, nil
}

// RevokeRefresh снимает refresh-токен при логауте. Незнакомый хэш не
// считается ошибкой: логаут идемпотентен.
func (s *store) RevokeRefresh(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, hash)
}

// CreateGroup создаёт группу; создатель становится её администратором.
func (s *store) CreateGroup(creatorID int64, name, description, imageURL string) (*storedGroup, error) {
	const op = "stubserver.store.CreateGroup"

	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := &storedGroup{
		ID:          s.nextIDLocked(),
		Name:        name,
		Description: description,
		ImageURL:    imageURL,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   creatorID,
		Members: []storedMember{
			{UserID: creatorID, Role: "admin", JoinedAt: time.Now().UTC()},
		},
	}
	s.groups[g.ID] = g

	return g.snapshotLocked(), nil
}

// GroupsForUser возвращает группы, где пользователь состоит участником.
func (s *store) GroupsForUser(userID int64) []*storedGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*storedGroup
	for _, g := range s.groups {
		if g.hasMember(userID) {
			out = append(out, g.snapshotLocked())
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// GroupForMember возвращает группу, если пользователь в ней состоит.
// Чужая группа неотличима от несуществующей.
func (s *store) GroupForMember(groupID, userID int64) (*storedGroup, error) {
	const op = "stubserver.store.GroupForMember"

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok || !g.hasMember(userID) {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrNotFound)
	}

	return g.snapshotLocked(), nil
}

// snapshotLocked — копия группы с собственным списком участников.
// Вызывается под мьютексом стора; снимок читается уже без него,
// конкурентный JoinByInvite дописывает участников только в оригинал.
func (g *storedGroup) snapshotLocked() *storedGroup {
	cp := *g
	cp.Members = append([]storedMember(nil), g.Members...)
	return &cp
}

func (g *storedGroup) hasMember(userID int64) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// CreateInvite выпускает токен-приглашение в группу.
func (s *store) CreateInvite(groupID, userID int64, ttl time.Duration) (*storedInvite, error) {
	const op = "stubserver.store.CreateInvite"

	if _, err := s.GroupForMember(groupID, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	inv := &storedInvite{
		Token:     uuid.NewString(),
		GroupID:   groupID,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}

	s.mu.Lock()
	s.invites[inv.Token] = inv
	s.mu.Unlock()

	return inv, nil
}

// JoinByInvite вводит пользователя в группу по токену-приглашению.
// Повторный вход идемпотентен.
func (s *store) JoinByInvite(token string, userID int64) (*storedGroup, error) {
	const op = "stubserver.store.JoinByInvite"

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invites[token]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrNotFound)
	}

	if time.Now().After(inv.ExpiresAt) {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrInviteExpired)
	}

	g, ok := s.groups[inv.GroupID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrNotFound)
	}

	if !g.hasMember(userID) {
		g.Members = append(g.Members, storedMember{
			UserID:   userID,
			Role:     "member",
			JoinedAt: time.Now().UTC(),
		})
	}

	return g.snapshotLocked(), nil
}

// CreateExpense регистрирует расход группы.
func (s *store) CreateExpense(e *storedExpense) (*storedExpense, error) {
	const op = "stubserver.store.CreateExpense"

	if e.Description == "" || e.TotalAmount <= 0 || len(e.Participants) == 0 {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[e.GroupID]; !ok {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrNotFound)
	}

	e.ID = s.nextIDLocked()
	e.CreatedAt = time.Now().UTC()
	s.expenses[e.ID] = e

	return e, nil
}

// ExpensesForGroup возвращает расходы группы в порядке создания.
func (s *store) ExpensesForGroup(groupID int64) []*storedExpense {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*storedExpense
	for _, e := range s.expenses {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// TotalExpenses — сумма расходов группы для сводки.
func (s *store) TotalExpenses(groupID int64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, e := range s.expenses {
		if e.GroupID == groupID {
			total += e.TotalAmount
		}
	}

	return total
}

// CreatePayment регистрирует ручной платёж между участниками группы.
func (s *store) CreatePayment(p *storedPayment) (*storedPayment, error) {
	const op = "stubserver.store.CreatePayment"

	if p.Amount <= 0 || p.FromUserID == p.ToUserID {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[p.GroupID]
	if !ok || !g.hasMember(p.FromUserID) || !g.hasMember(p.ToUserID) {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrNotFound)
	}

	p.ID = s.nextIDLocked()
	p.CreatedAt = time.Now().UTC()
	s.payments[p.ID] = p

	return p, nil
}
