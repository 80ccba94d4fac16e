package dispensa_test

import (
	"testing"

	"go-dispensa/internal/dispensa"
	dispensaerrors "go-dispensa/internal/dispensa/errors"

	"github.com/stretchr/testify/assert"
)

var allStages = []dispensa.Stage{
	dispensa.StagePendingManager,
	dispensa.StagePendingCoordinator,
	dispensa.StagePendingAdmin,
	dispensa.StageApproved,
	dispensa.StageRejected,
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		from    dispensa.Stage
		action  dispensa.Action
		want    dispensa.Stage
		wantErr error
	}{
		{"approve manager stage", dispensa.StagePendingManager, dispensa.ActionApprove, dispensa.StagePendingCoordinator, nil},
		{"approve coordinator stage", dispensa.StagePendingCoordinator, dispensa.ActionApprove, dispensa.StagePendingAdmin, nil},
		{"approve admin stage", dispensa.StagePendingAdmin, dispensa.ActionApprove, dispensa.StageApproved, nil},
		{"reject manager stage", dispensa.StagePendingManager, dispensa.ActionReject, dispensa.StageRejected, nil},
		{"reject coordinator stage", dispensa.StagePendingCoordinator, dispensa.ActionReject, dispensa.StageRejected, nil},
		{"reject admin stage", dispensa.StagePendingAdmin, dispensa.ActionReject, dispensa.StageRejected, nil},
		{"approve approved", dispensa.StageApproved, dispensa.ActionApprove, "", dispensaerrors.ErrInvalidTransition},
		{"reject approved", dispensa.StageApproved, dispensa.ActionReject, "", dispensaerrors.ErrInvalidTransition},
		{"approve rejected", dispensa.StageRejected, dispensa.ActionApprove, "", dispensaerrors.ErrInvalidTransition},
		{"reject rejected", dispensa.StageRejected, dispensa.ActionReject, "", dispensaerrors.ErrInvalidTransition},
		{"unknown stage", dispensa.Stage("DRAFT"), dispensa.ActionApprove, "", dispensaerrors.ErrInvalidTransition},
		{"unknown action", dispensa.StagePendingManager, dispensa.Action("escalate"), "", dispensaerrors.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dispensa.Apply(tt.from, tt.action)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_NeverReturnsInputStage(t *testing.T) {
	for _, s := range allStages {
		for _, a := range []dispensa.Action{dispensa.ActionApprove, dispensa.ActionReject} {
			got, err := dispensa.Apply(s, a)
			if err == nil {
				assert.NotEqual(t, s, got, "%s/%s", s, a)
			}
		}
	}
}

func TestParseStage(t *testing.T) {
	t.Run("success canonical", func(t *testing.T) {
		for _, s := range allStages {
			got, err := dispensa.ParseStage(string(s))
			assert.NoError(t, err)
			assert.Equal(t, s, got)
		}
	})

	t.Run("success legacy aliases", func(t *testing.T) {
		aliases := map[string]dispensa.Stage{
			"PENDENTE_GERENTE": dispensa.StagePendingManager,
			"pendente_coord":   dispensa.StagePendingCoordinator,
			" PENDENTE_ADMIN ": dispensa.StagePendingAdmin,
			"APROVADO":         dispensa.StageApproved,
			"CANCELADO":        dispensa.StageRejected,
			"INDEFERIDO":       dispensa.StageRejected,
		}
		for in, want := range aliases {
			got, err := dispensa.ParseStage(in)
			assert.NoError(t, err, in)
			assert.Equal(t, want, got, in)
		}
	})

	t.Run("negative unknown", func(t *testing.T) {
		_, err := dispensa.ParseStage("ARCHIVED")
		assert.ErrorIs(t, err, dispensaerrors.ErrInvalidStage)
	})
}

func TestStage_Predicates(t *testing.T) {
	assert.True(t, dispensa.StageApproved.IsTerminal())
	assert.True(t, dispensa.StageRejected.IsTerminal())
	assert.False(t, dispensa.StagePendingAdmin.IsTerminal())
	assert.True(t, dispensa.StagePendingManager.IsPending())
	assert.False(t, dispensa.Stage("").IsPending())
	assert.False(t, dispensa.Stage("").Valid())
}

func TestParseAction(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		a, err := dispensa.ParseAction(" Approve ")
		assert.NoError(t, err)
		assert.Equal(t, dispensa.ActionApprove, a)

		a, err = dispensa.ParseAction("reject")
		assert.NoError(t, err)
		assert.Equal(t, dispensa.ActionReject, a)
	})

	t.Run("negative unknown", func(t *testing.T) {
		_, err := dispensa.ParseAction("cancel")
		assert.ErrorIs(t, err, dispensaerrors.ErrInvalidAction)
	})
}

func TestStage_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want dispensa.Stage
	}{
		{"canonical", "PENDING_ADMIN", dispensa.StagePendingAdmin},
		{"bytes", []byte("APPROVED"), dispensa.StageApproved},
		{"legacy cancelado", "CANCELADO", dispensa.StageRejected},
		{"legacy indeferido", []byte("INDEFERIDO"), dispensa.StageRejected},
		{"legacy pendente coord", "PENDENTE_COORD", dispensa.StagePendingCoordinator},
		{"null", nil, ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s dispensa.Stage
			assert.NoError(t, s.Scan(tt.src))
			assert.Equal(t, tt.want, s)
		})
	}

	t.Run("negative unknown value", func(t *testing.T) {
		var s dispensa.Stage
		assert.Error(t, s.Scan("ARQUIVADO"))
	})

	t.Run("negative unsupported type", func(t *testing.T) {
		var s dispensa.Stage
		assert.Error(t, s.Scan(42))
	})
}

func TestStage_Value(t *testing.T) {
	v, err := dispensa.StageRejected.Value()
	assert.NoError(t, err)
	assert.Equal(t, "REJECTED", v)

	v, err = dispensa.Stage("").Value()
	assert.NoError(t, err)
	assert.Nil(t, v)

	_, err = dispensa.Stage("CANCELADO").Value()
	assert.Error(t, err)
}
