package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/rbac"
)

// State — снимок сессии. Копия: изменение полей не влияет на Store.
type State struct {
	// User — текущий пользователь (nil — не вошёл)
	User *model.User
	// Token — bearer token ("" — отсутствует)
	Token string
	// RoleContexts — все контексты пользователя в порядке ответа сервера
	RoleContexts []model.RoleContext
	// RequiresRoleSelection — флаг сервера о необходимости выбора роли
	RequiresRoleSelection bool
	// SelectedRoleContext — контекст, в котором действует пользователь
	SelectedRoleContext *model.RoleContext
	// IsLoading — true до завершения Restore
	IsLoading bool
}

// IsAuthenticated — пользователь и токен заданы.
func (s State) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

// NeedsRoleSelection — страницы роли закрыты до выбора контекста.
func (s State) NeedsRoleSelection() bool {
	return rbac.NeedsRoleSelection(s.RequiresRoleSelection, s.RoleContexts, s.SelectedRoleContext)
}

// ActiveContext — выбранный контекст либо единственный доступный.
func (s State) ActiveContext() *model.RoleContext {
	return rbac.ActiveContext(s.RoleContexts, s.SelectedRoleContext)
}

// HomeRoute — куда направить пользователя по текущему состоянию сессии.
func (s State) HomeRoute() string {
	if !s.IsAuthenticated() {
		// Вошёл, но токен выдаётся только после выбора роли
		if s.User != nil && len(s.RoleContexts) > 0 {
			return rbac.RouteSelectRole
		}
		return rbac.RouteLogin
	}
	if s.NeedsRoleSelection() {
		return rbac.RouteSelectRole
	}
	if rc := s.ActiveContext(); rc != nil {
		return rbac.RouteFor(*rc)
	}
	return rbac.RouteSelectRole
}

func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.SelectedRoleContext = cloneContext(s.SelectedRoleContext)
	out.RoleContexts = model.CloneRoleContexts(s.RoleContexts)
	return out
}

// Store — единственный источник истины о сессии.
// Все изменения пишутся в Storage до изменения памяти; при ошибке записи
// память не меняется. Наблюдатели получают снимок после каждого изменения.
type Store struct {
	storage Storage
	nav     Navigator
	logger  *slog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	observers  map[int]func(State)
	nextID     int

	// Отложенные задачи (навигация после очистки), выполняются после уведомления.
	queueMu   sync.Mutex
	followUps []func()
	draining  bool
}

// New создаёт Store в состоянии загрузки.
// storage может быть nil (нет долговременного хранилища), nav — nil (навигация не нужна),
// logger — nil (используется slog.Default()).
func New(storage Storage, nav Navigator, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage:   storage,
		nav:       nav,
		logger:    logger.With(slog.String("component", "session_store")),
		state:     State{IsLoading: true},
		observers: make(map[int]func(State)),
	}
}

// Snapshot возвращает копию текущего состояния.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Generation — номер «поколения» сессии. Увеличивается при Logout и Expire:
// ответы запросов, начатых в прошлом поколении, должны отбрасываться.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Subscribe регистрирует наблюдателя изменений. Возвращает функцию отписки.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Restore читает сессию из хранилища. Сетевых вызовов нет.
// Повреждённое поле считается отсутствующим; остальные поля восстанавливаются.
// IsLoading сбрасывается только после завершения.
func (s *Store) Restore(ctx context.Context) {
	var entries map[string]string
	if s.storage != nil {
		var err error
		entries, err = s.storage.Load(ctx)
		if err != nil {
			s.logger.Warn("Ошибка чтения сессии из хранилища, сессия считается пустой",
				slog.String("error", err.Error()),
			)
			entries = nil
		}
	}

	restored := State{}

	if raw, ok := entries[KeyUser]; ok {
		var u model.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.logMalformed(KeyUser, err)
		} else {
			restored.User = &u
		}
	}

	if raw, ok := entries[KeyToken]; ok && raw != "" {
		restored.Token = raw
	}

	if raw, ok := entries[KeyRoleContexts]; ok {
		var list []model.RoleContext
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			s.logMalformed(KeyRoleContexts, err)
		} else {
			restored.RoleContexts = list
		}
	}

	if raw, ok := entries[KeySelectedRoleContext]; ok {
		var rc model.RoleContext
		if err := json.Unmarshal([]byte(raw), &rc); err != nil {
			s.logMalformed(KeySelectedRoleContext, err)
		} else {
			restored.SelectedRoleContext = &rc
		}
	}

	s.commit(func(st *State) {
		*st = restored
	})
}

func (s *Store) logMalformed(key string, err error) {
	s.logger.Warn("Повреждённое поле сессии пропущено",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// SetUser заменяет пользователя. nil удаляет запись из хранилища.
func (s *Store) SetUser(ctx context.Context, user *model.User) error {
	m := Mutation{}
	if err := putJSON(&m, KeyUser, user); err != nil {
		return err
	}
	if err := s.persist(ctx, m); err != nil {
		return err
	}
	s.commit(func(st *State) {
		st.User = cloneUser(user)
	})
	return nil
}

// SetToken заменяет bearer token. Пустая строка удаляет запись.
func (s *Store) SetToken(ctx context.Context, token string) error {
	m := Mutation{}
	putToken(&m, token)
	if err := s.persist(ctx, m); err != nil {
		return err
	}
	s.commit(func(st *State) {
		st.Token = token
	})
	return nil
}

// SetRoleContexts заменяет список контекстов. Записывается всегда, даже пустой.
func (s *Store) SetRoleContexts(ctx context.Context, list []model.RoleContext) error {
	m := Mutation{}
	if err := putContexts(&m, list); err != nil {
		return err
	}
	if err := s.persist(ctx, m); err != nil {
		return err
	}
	s.commit(func(st *State) {
		st.RoleContexts = model.CloneRoleContexts(list)
	})
	return nil
}

// SetSelectedRoleContext заменяет активный контекст. nil удаляет запись.
func (s *Store) SetSelectedRoleContext(ctx context.Context, rc *model.RoleContext) error {
	m := Mutation{}
	if err := putJSON(&m, KeySelectedRoleContext, rc); err != nil {
		return err
	}
	if err := s.persist(ctx, m); err != nil {
		return err
	}
	s.commit(func(st *State) {
		st.SelectedRoleContext = cloneContext(rc)
	})
	return nil
}

// Login — составное обновление после входа. Все поля меняются одним
// переходом: наблюдатель не увидит нового пользователя со старым токеном.
func (s *Store) Login(ctx context.Context, patch LoginPatch) error {
	m := Mutation{}
	if err := putJSON(&m, KeyUser, patch.User); err != nil {
		return err
	}

	token, _ := patch.Token.Get()
	putToken(&m, token)

	contexts, setContexts := patch.RoleContexts.Get()
	if setContexts {
		if err := putContexts(&m, contexts); err != nil {
			return err
		}
	}

	selected, setSelected := patch.SelectedRoleContext.Get()
	if setSelected {
		if err := putJSON(&m, KeySelectedRoleContext, selected); err != nil {
			return err
		}
	}

	if err := s.persist(ctx, m); err != nil {
		return err
	}

	requires, setRequires := patch.RequiresRoleSelection.Get()
	s.commit(func(st *State) {
		st.User = cloneUser(patch.User)
		st.Token = token
		st.IsLoading = false
		if setContexts {
			st.RoleContexts = model.CloneRoleContexts(contexts)
		}
		if setRequires {
			st.RequiresRoleSelection = requires
		}
		if setSelected {
			st.SelectedRoleContext = cloneContext(selected)
		}
	})
	return nil
}

// Logout очищает сессию и всё хранилище целиком, затем переходит на вход.
// Две фазы: сначала очистка и уведомление наблюдателей, потом навигация.
// Ошибка очистки хранилища возвращается, но память очищается в любом случае.
func (s *Store) Logout(ctx context.Context) error {
	var err error
	if s.storage != nil {
		if clearErr := s.storage.Clear(ctx); clearErr != nil {
			err = fmt.Errorf("ошибка очистки хранилища сессии: %w", clearErr)
			s.logger.Error("Ошибка очистки хранилища при logout",
				slog.String("error", clearErr.Error()),
			)
		}
	}

	s.reset()
	return err
}

// Expire завершает сессию после отказа авторизации от API:
// удаляет ключи аутентификации (не всё хранилище) и переходит на вход.
func (s *Store) Expire(ctx context.Context) error {
	var err error
	if s.storage != nil {
		if applyErr := s.storage.Apply(ctx, Mutation{Delete: AuthKeys}); applyErr != nil {
			err = fmt.Errorf("ошибка удаления ключей сессии: %w", applyErr)
			s.logger.Error("Ошибка очистки ключей сессии при истечении",
				slog.String("error", applyErr.Error()),
			)
		}
	}

	s.reset()
	return err
}

// reset очищает память, уведомляет наблюдателей и ставит в очередь
// переход на страницу входа.
func (s *Store) reset() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()

	s.commit(func(st *State) {
		*st = State{}
	})

	s.enqueue(func() {
		if s.nav != nil {
			s.nav.Navigate(rbac.RouteLogin)
		}
	})
	s.drain()
}

// persist применяет изменения к хранилищу; без хранилища — no-op.
func (s *Store) persist(ctx context.Context, m Mutation) error {
	if s.storage == nil || m.IsEmpty() {
		return nil
	}
	if err := s.storage.Apply(ctx, m); err != nil {
		return fmt.Errorf("ошибка записи сессии в хранилище: %w", err)
	}
	return nil
}

// commit изменяет состояние под блокировкой и уведомляет наблюдателей.
func (s *Store) commit(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state.clone()
	observers := make([]func(State), 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(snap.clone())
	}
}

func (s *Store) enqueue(fn func()) {
	s.queueMu.Lock()
	s.followUps = append(s.followUps, fn)
	s.queueMu.Unlock()
}

// drain выполняет отложенные задачи по порядку. Повторный вызов
// из задачи только добавляет в очередь.
func (s *Store) drain() {
	s.queueMu.Lock()
	if s.draining {
		s.queueMu.Unlock()
		return
	}
	s.draining = true
	s.queueMu.Unlock()

	for {
		s.queueMu.Lock()
		if len(s.followUps) == 0 {
			s.draining = false
			s.queueMu.Unlock()
			return
		}
		next := s.followUps[0]
		s.followUps = s.followUps[1:]
		s.queueMu.Unlock()

		next()
	}
}

// --- Сериализация ---

func putJSON[T any](m *Mutation, key string, v *T) error {
	if v == nil {
		m.Delete = append(m.Delete, key)
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ошибка сериализации %s: %w", key, err)
	}
	setKey(m, key, string(data))
	return nil
}

func putToken(m *Mutation, token string) {
	if token == "" {
		m.Delete = append(m.Delete, KeyToken)
		return
	}
	setKey(m, KeyToken, token)
}

func putContexts(m *Mutation, list []model.RoleContext) error {
	if list == nil {
		list = []model.RoleContext{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("ошибка сериализации %s: %w", KeyRoleContexts, err)
	}
	setKey(m, KeyRoleContexts, string(data))
	return nil
}

func setKey(m *Mutation, key, value string) {
	if m.Set == nil {
		m.Set = make(map[string]string, 4)
	}
	m.Set[key] = value
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func cloneContext(rc *model.RoleContext) *model.RoleContext {
	if rc == nil {
		return nil
	}
	c := rc.Clone()
	return &c
}
