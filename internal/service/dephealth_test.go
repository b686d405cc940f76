package service

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDependencyNames(t *testing.T) {
	if got := dependencyNames(DephealthConfig{}); !reflect.DeepEqual(got, []string{"backend-api"}) {
		t.Errorf("без БД: %v", got)
	}
	withDB := DephealthConfig{DB: &sql.DB{}}
	if got := dependencyNames(withDB); !reflect.DeepEqual(got, []string{"backend-api", "postgresql"}) {
		t.Errorf("с БД: %v", got)
	}
}

func TestNewDephealthService_BackendOnly(t *testing.T) {
	ds, err := NewDephealthServiceWithRegisterer(DephealthConfig{
		ServiceID:     "dashboard-module",
		Group:         "teamdesk",
		BackendURL:    "http://backend.test:3000",
		CheckInterval: 15 * time.Second,
	}, testLogger(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewDephealthService() ошибка: %v", err)
	}
	if len(ds.deps) != 1 || ds.deps[0] != "backend-api" {
		t.Errorf("deps = %v", ds.deps)
	}
}
