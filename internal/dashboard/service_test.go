package dashboard_test

import (
	"testing"
	"time"

	"github.com/hugh/fieldops/internal/dashboard"
	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/testutil"
	"github.com/hugh/fieldops/internal/workorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Snapshot(t *testing.T) {
	ts := testutil.NewTestContext(t)
	defer ts.Cleanup()
	ctx := testutil.TestContext(t)

	svc := dashboard.NewService(ts.DB, workorder.MustNewPolicy(), time.UTC, nil)

	testutil.CreateTestReport(t, ts.DB, ts.Org, ts.Technician, models.StatusPending)
	testutil.CreateTestReport(t, ts.DB, ts.Org, ts.Technician, models.StatusInProgress)
	testutil.CreateTestReport(t, ts.DB, ts.Org, ts.Other, models.StatusCompleted)

	otherOrg := testutil.CreateTestOrg(t, ts.DB)
	testutil.CreateTestReport(t, ts.DB, otherOrg, nil, models.StatusPending)

	r, err := svc.ParseRange("", "")
	require.NoError(t, err)

	t.Run("owner gets snapshot", func(t *testing.T) {
		snap, err := svc.Snapshot(ctx, ts.Tenant(ts.Owner), r)
		require.NoError(t, err)
		assert.Equal(t, 3, snap.KPIs.Created)
		assert.Equal(t, 1, snap.KPIs.Closed)
		assert.Equal(t, 2, snap.KPIs.OpenEnd)
		assert.Equal(t, 100, snap.KPIs.SLA)
		assert.Equal(t, dashboard.Split{Pending: 50, InProgress: 50}, snap.Split)
		require.Len(t, snap.Series, 7)
		assert.Equal(t, snap.KPIs.OpenEnd, snap.Series[6].Value)
	})

	t.Run("member forbidden", func(t *testing.T) {
		_, err := svc.Snapshot(ctx, ts.Tenant(ts.Technician), r)
		assert.ErrorIs(t, err, workorder.ErrForbidden)
	})
}

func TestService_Authorize(t *testing.T) {
	ts := testutil.NewTestContext(t)
	defer ts.Cleanup()

	svc := dashboard.NewService(ts.DB, workorder.MustNewPolicy(), time.UTC, nil)

	assert.NoError(t, svc.Authorize(ts.Tenant(ts.Owner)))
	assert.ErrorIs(t, svc.Authorize(ts.Tenant(ts.Technician)), workorder.ErrForbidden)
}
