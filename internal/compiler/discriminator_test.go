package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anchorgo/internal/ir"
)

func TestAssignLegacyComputes(t *testing.T) {
	idl := ir.NewIdl(ir.OriginLegacy)
	idl.Instructions = []*ir.Instruction{{Name: "initializeMint"}}
	idl.Accounts = []*ir.Account{{Name: "Counter", Type: ir.Defined{Name: "Counter"}}}
	idl.Events = []*ir.Event{{Name: "CounterChanged", Type: ir.Defined{Name: "CounterChanged"}}}

	require.NoError(t, AssignDiscriminators(idl))
	assert.Equal(t, []byte{209, 42, 195, 4, 129, 85, 209, 44}, idl.Instructions[0].Discriminator)
	assert.Equal(t, []byte{255, 176, 4, 245, 188, 253, 124, 25}, idl.Accounts[0].Discriminator)
	assert.Equal(t, []byte{98, 53, 157, 176, 193, 167, 71, 242}, idl.Events[0].Discriminator)
}

func TestAssignNewFormatKeepsExplicit(t *testing.T) {
	idl := ir.NewIdl(ir.OriginNewFormat)
	idl.Instructions = []*ir.Instruction{{Name: "a", Discriminator: []byte{1}}, {Name: "b", Discriminator: []byte{2, 3}}}
	idl.Accounts = []*ir.Account{{Name: "A", Discriminator: []byte{9, 9, 9, 9}}}

	require.NoError(t, AssignDiscriminators(idl))
	assert.Equal(t, []byte{1}, idl.Instructions[0].Discriminator)
	assert.Equal(t, []byte{2, 3}, idl.Instructions[1].Discriminator)
}

func TestAssignNewFormatRequiresExplicit(t *testing.T) {
	idl := ir.NewIdl(ir.OriginNewFormat)
	idl.Accounts = []*ir.Account{{Name: "A"}}
	err := AssignDiscriminators(idl)
	require.Error(t, err)
	assert.True(t, ir.IsKind(err, ir.KindMissingRequiredField))
	assert.Contains(t, err.Error(), `account "A" has no discriminator`)
}

func TestAssignCollisions(t *testing.T) {
	tests := []struct {
		name  string
		tags  [][]byte
		names []string
	}{
		{"identical", [][]byte{{1, 2}, {3}, {1, 2}}, []string{"x0", "x2"}},
		{"prefix", [][]byte{{1, 2, 3}, {1, 2}}, []string{"x0", "x1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idl := ir.NewIdl(ir.OriginNewFormat)
			for i, tag := range tt.tags {
				idl.Instructions = append(idl.Instructions, &ir.Instruction{Name: "x" + string(rune('0'+i)), Discriminator: tag})
			}
			err := AssignDiscriminators(idl)
			var e *ir.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, ir.KindDiscriminatorCollision, e.Kind)
			assert.Equal(t, tt.names, e.Names)
		})
	}
}

func TestAssignCollisionsAreScopedPerKind(t *testing.T) {
	idl := ir.NewIdl(ir.OriginNewFormat)
	idl.Instructions = []*ir.Instruction{{Name: "a", Discriminator: []byte{7}}}
	idl.Accounts = []*ir.Account{{Name: "A", Discriminator: []byte{7}}}
	idl.Events = []*ir.Event{{Name: "E", Discriminator: []byte{7}}}
	assert.NoError(t, AssignDiscriminators(idl))
}
