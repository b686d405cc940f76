package storage

import (
	"context"
	"testing"
	"time"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
)

func TestMemoryBackendIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(10, time.Hour)

	a := b.For("sid-a")
	c := b.For("sid-c")

	if err := a.Apply(ctx, session.Mutation{Set: map[string]string{"token": "A"}}); err != nil {
		t.Fatalf("Apply() ошибка: %v", err)
	}
	if err := c.Apply(ctx, session.Mutation{Set: map[string]string{"token": "C"}}); err != nil {
		t.Fatalf("Apply() ошибка: %v", err)
	}

	got, _ := a.Load(ctx)
	if got["token"] != "A" {
		t.Errorf("sid-a token = %q, ожидается A", got["token"])
	}
	got, _ = c.Load(ctx)
	if got["token"] != "C" {
		t.Errorf("sid-c token = %q, ожидается C", got["token"])
	}
}

func TestMemoryBackendApplySetAndDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryBackend(10, time.Hour).For("sid")

	_ = st.Apply(ctx, session.Mutation{Set: map[string]string{
		"user": "{}", "token": "t", "theme": "dark",
	}})
	err := st.Apply(ctx, session.Mutation{
		Set:    map[string]string{"user": `{"id":1}`},
		Delete: []string{"token"},
	})
	if err != nil {
		t.Fatalf("Apply() ошибка: %v", err)
	}

	got, _ := st.Load(ctx)
	if len(got) != 2 || got["user"] != `{"id":1}` || got["theme"] != "dark" {
		t.Errorf("Load() = %v", got)
	}
	if _, ok := got["token"]; ok {
		t.Error("token должен быть удалён")
	}
}

func TestMemoryBackendLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryBackend(10, time.Hour).For("sid")
	_ = st.Apply(ctx, session.Mutation{Set: map[string]string{"token": "t"}})

	got, _ := st.Load(ctx)
	got["token"] = "mutated"

	again, _ := st.Load(ctx)
	if again["token"] != "t" {
		t.Errorf("изменение результата Load() протекло в хранилище: %q", again["token"])
	}
}

func TestMemoryBackendClear(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(10, time.Hour)
	st := b.For("sid")
	_ = st.Apply(ctx, session.Mutation{Set: map[string]string{"token": "t", "theme": "dark"}})

	if err := st.Clear(ctx); err != nil {
		t.Fatalf("Clear() ошибка: %v", err)
	}
	got, _ := st.Load(ctx)
	if len(got) != 0 {
		t.Errorf("после Clear() осталось %v", got)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, ожидается 0", b.Len())
	}
}

func TestMemoryBackendEvictsLeastRecent(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(2, time.Hour)

	for _, sid := range []string{"s1", "s2", "s3"} {
		_ = b.For(sid).Apply(ctx, session.Mutation{Set: map[string]string{"token": sid}})
	}

	if b.Len() != 2 {
		t.Fatalf("Len() = %d, ожидается 2", b.Len())
	}
	got, _ := b.For("s1").Load(ctx)
	if len(got) != 0 {
		t.Errorf("s1 должна быть вытеснена, получено %v", got)
	}
}

func TestMemoryBackendExpires(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(10, 50*time.Millisecond)
	st := b.For("sid")
	_ = st.Apply(ctx, session.Mutation{Set: map[string]string{"token": "t"}})

	time.Sleep(120 * time.Millisecond)

	got, _ := st.Load(ctx)
	if len(got) != 0 {
		t.Errorf("запись должна истечь, получено %v", got)
	}
}

// Полный цикл Store поверх memory-бэкенда: состояние переживает
// «перезагрузку» (новый Store на том же пространстве).
func TestMemoryBackendWithStore(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(10, time.Hour)

	st := session.New(b.For("sid"), nil, nil)
	st.Restore(ctx)
	if err := st.SetToken(ctx, "jwt"); err != nil {
		t.Fatalf("SetToken() ошибка: %v", err)
	}

	reloaded := session.New(b.For("sid"), nil, nil)
	reloaded.Restore(ctx)
	if reloaded.Snapshot().Token != "jwt" {
		t.Errorf("Token после перезагрузки = %q, ожидается jwt", reloaded.Snapshot().Token)
	}
}
