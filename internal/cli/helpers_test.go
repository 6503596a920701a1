package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/JourneyJu/dsg-sub008/internal/apiclient"
	"github.com/JourneyJu/dsg-sub008/internal/config"
	"github.com/JourneyJu/dsg-sub008/internal/db"
	"github.com/JourneyJu/dsg-sub008/internal/logging"
	"github.com/JourneyJu/dsg-sub008/internal/repository"
	"github.com/JourneyJu/dsg-sub008/internal/server"
	"github.com/JourneyJu/dsg-sub008/internal/service"
	"github.com/JourneyJu/dsg-sub008/internal/testutil"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

type testEnv struct {
	app   *App
	plans *repository.SQLitePlanRepo
}

// newTestEnv starts a seeded development backend and an App talking to it.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)
	_, err := server.Seed(context.Background(), db.NewSQLiteUnitOfWork(database), repository.NewSQLiteTargetRepo(database))
	require.NoError(t, err)

	log := logging.Discard()
	srv := httptest.NewServer(server.NewRouter(server.NewHandler(database, "", log)))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.API.Endpoint = srv.URL
	client := apiclient.New(apiclient.Config{Endpoint: srv.URL, Timeout: 5 * time.Second}, log, nil)

	return &testEnv{
		app: &App{
			Config: cfg,
			Log:    log,
			Eval:   service.NewEvaluationService(client, service.EvaluationOptions{PageSize: 10, SubmitConcurrency: 2}),
		},
		plans: repository.NewSQLitePlanRepo(database),
	}
}

// run executes the command tree with args and returns stripped output.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(e.app)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stripANSI(out.String()), err
}

// completeSets fills every plan of the demo target that has a target.
func completeSets() []string {
	values := []string{
		"plan-acq-01=120",
		"plan-acq-02=40",
		"plan-dqi-01=30",
		"plan-dqi-02=12",
		"plan-cat-01=79",
		"plan-ba-01:model_actual_count=6",
		"plan-ba-01:flow_actual_count=14",
		"plan-ba-01:table_actual_count=40",
		"plan-ba-02:model_actual_count=3",
		"plan-ba-02:table_actual_count=10",
	}
	args := make([]string, 0, 2*len(values))
	for _, v := range values {
		args = append(args, "--set", v)
	}
	return args
}
