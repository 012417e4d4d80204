package repository_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/billingflow/internal/domain"
	"github.com/nikolayk812/billingflow/internal/port"
	"github.com/nikolayk812/billingflow/internal/repository"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

type eventRepositorySuite struct {
	suite.Suite

	pool      *pgxpool.Pool
	repo      port.EventRepository
	container testcontainers.Container
}

// entry point to run the tests in the suite
func TestEventRepositorySuite(t *testing.T) {
	suite.Run(t, new(eventRepositorySuite))
}

// before all tests in the suite
func (suite *eventRepositorySuite) SetupSuite() {
	ctx := suite.T().Context()

	var (
		connStr string
		err     error
	)

	suite.container, connStr, err = startPostgres(ctx)
	suite.NoError(err)

	suite.pool, err = pgxpool.New(ctx, connStr)
	suite.NoError(err)

	suite.repo, err = repository.NewEvent(suite.pool)
	suite.NoError(err)
}

// after all tests in the suite
func (suite *eventRepositorySuite) TearDownSuite() {
	ctx := suite.T().Context()

	if suite.pool != nil {
		suite.pool.Close()
	}
	if suite.container != nil {
		suite.NoError(suite.container.Terminate(ctx))
	}
}

func (suite *eventRepositorySuite) TestInsertEvent() {
	tests := []struct {
		name      string
		event     domain.Event
		wantError string
	}{
		{
			name: "full event: ok",
			event: domain.Event{
				ID:        uuid.New(),
				SessionID: "s-1",
				EventType: "section_opened",
				SectionID: lo.ToPtr("pricing"),
				Metadata:  json.RawMessage(`{"referrer": "newsletter"}`),
			},
		},
		{
			name: "no id, no metadata: id generated",
			event: domain.Event{
				SessionID: "s-2",
				EventType: "page_view",
			},
		},
		{
			name:      "missing session id: error",
			event:     domain.Event{EventType: "page_view"},
			wantError: "sessionID is empty",
		},
		{
			name:      "missing event type: error",
			event:     domain.Event{SessionID: "s-3"},
			wantError: "eventType is empty",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()

			eventID, err := suite.repo.InsertEvent(t.Context(), tt.event)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)

			assert.NotEqual(t, uuid.Nil, eventID)
			if tt.event.ID != uuid.Nil {
				assert.Equal(t, tt.event.ID, eventID)
			}
		})
	}
}

func (suite *eventRepositorySuite) TestInsertEvent_RetrySameID() {
	t := suite.T()
	ctx := t.Context()

	event := domain.Event{
		ID:        uuid.New(),
		SessionID: "s-retry",
		EventType: "page_view",
	}

	_, err := suite.repo.InsertEvent(ctx, event)
	require.NoError(t, err)

	// a client retry with the same event id must not duplicate the row
	_, err = suite.repo.InsertEvent(ctx, event)
	require.NoError(t, err)

	var count int
	err = suite.pool.QueryRow(ctx, "SELECT count(*) FROM events WHERE id = $1", event.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
