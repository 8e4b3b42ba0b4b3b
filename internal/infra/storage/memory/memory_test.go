package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/netfailover/internal/core/domain"
)

func TestAttemptStore(t *testing.T) {
	ctx := context.Background()
	s := NewAttemptStore(3)

	for i := 1; i <= 4; i++ {
		s.Record(ctx, domain.Attempt{
			ExecutionID: fmt.Sprintf("exec-%d", (i+1)/2),
			Seq:         (i-1)%2 + 1,
			Interface:   fmt.Sprintf("if%d", i),
		})
	}

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "if2", all[0].Interface)

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "if4", recent[0].Interface)
	assert.Equal(t, "if3", recent[1].Interface)

	recent, err = s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	exec, err := s.Execution(ctx, "exec-2")
	require.NoError(t, err)
	require.Len(t, exec, 2)
	assert.Equal(t, 1, exec[0].Seq)
	assert.Equal(t, 2, exec[1].Seq)

	exec, err = s.Execution(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, exec)
}

func TestAttemptStore_DefaultSize(t *testing.T) {
	s := NewAttemptStore(0)
	assert.Equal(t, DefaultMaxEntries, s.maxEntries)
}
