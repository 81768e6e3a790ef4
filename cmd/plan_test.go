package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-scout/internal/apperr"
	"github.com/sells-group/site-scout/internal/config"
	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/internal/planning"
)

func TestPlanCommand_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range planCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"add", "list", "show", "update", "rm", "search"} {
		assert.True(t, names[name], "expected plan subcommand %q", name)
	}
	assert.NotNil(t, planCmd.PersistentFlags().Lookup("json"))
	assert.Equal(t, "8", planSearchCmd.Flags().Lookup("limit").DefValue)
}

func TestPlanPatch_OnlyChangedFlags(t *testing.T) {
	c := &cobra.Command{Use: "update"}
	addPlanFieldFlags(c)
	require.NoError(t, c.ParseFlags([]string{"--status", "priority", "--radius", "300", "--lat", "31.5", "--notes", ""}))

	patch := planPatch(c)
	require.NotNil(t, patch.Status)
	assert.Equal(t, "priority", *patch.Status)
	require.NotNil(t, patch.RadiusMeters)
	assert.Equal(t, 300, *patch.RadiusMeters)
	require.NotNil(t, patch.Lat)
	assert.InDelta(t, 31.5, *patch.Lat, 1e-9)
	require.NotNil(t, patch.Notes, "an explicitly empty flag clears the field")
	assert.Empty(t, *patch.Notes)

	assert.Nil(t, patch.Name)
	assert.Nil(t, patch.Lng)
	assert.Nil(t, patch.Color)
	assert.Nil(t, patch.PriorityRank)
}

func TestPlanPatch_NoFlagsIsEmpty(t *testing.T) {
	c := &cobra.Command{Use: "update"}
	addPlanFieldFlags(c)
	require.NoError(t, c.ParseFlags(nil))
	assert.True(t, planPatch(c).Empty())
}

func TestWithPlanning_UsesConfiguredStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "plan.sqlite")
	withConfig(t, &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: dsn},
		Gaode: config.GaodeConfig{PageSize: 25},
	})
	cmd := &cobra.Command{Use: "plan"}
	cmd.SetContext(context.Background())

	var id string
	require.NoError(t, withPlanning(cmd, func(svc *planning.Service) error {
		p, err := svc.Create(cmd.Context(), planning.CreateRequest{City: "上海市", Name: "人民广场", Lng: 121.47, Lat: 31.23})
		if err != nil {
			return err
		}
		id = p.ID
		return nil
	}))

	err := withPlanning(cmd, func(svc *planning.Service) error {
		points, err := svc.List(cmd.Context(), "上海市")
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, id, points[0].ID)
		return svc.Delete(cmd.Context(), "missing")
	})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestFormatPlanningPoints(t *testing.T) {
	var buf bytes.Buffer
	formatPlanningPoints(&buf, []model.PlanningPoint{{
		ID: "4f1c2d3e-aaaa-bbbb-cccc-000000000000", City: "上海市", Name: "人民广场", Status: model.StatusPriority,
		PriorityRank: 3, RadiusMeters: 500, Lng: 121.47, Lat: 31.23, Color: "#2563eb",
	}})

	out := buf.String()
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "4f1c2d3e-aaaa-bbbb-cccc-000000000000")
	assert.Contains(t, out, "priority")
	assert.Contains(t, out, "500m")
	assert.Contains(t, out, "121.470000,31.230000")
}

func TestFormatSuggestions(t *testing.T) {
	var buf bytes.Buffer
	formatSuggestions(&buf, []model.POISuggestion{{ID: "B1", Name: "人民广场", City: "上海市", Lng: 121.47, Lat: 31.23, Address: "黄浦区"}})
	assert.Contains(t, buf.String(), "B1")
	assert.Contains(t, buf.String(), "黄浦区")
}
