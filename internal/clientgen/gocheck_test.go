package clientgen

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"

	"github.com/roach88/anchorgo/internal/codec"
	"github.com/roach88/anchorgo/internal/ir"
)

const modulePath = "github.com/roach88/anchorgo"

// moduleDir creates a scratch directory inside this package so generated
// code resolves imports against the module. It is removed after the test.
func moduleDir(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds generated code")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}
	dir, err := os.MkdirTemp(".", "gencheck")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	return abs
}

func writeFiles(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), src, 0o644))
	}
}

// typeCheck loads dir as a package and fails on any parse or type error.
func typeCheck(t *testing.T, dir string) {
	t.Helper()
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
		Dir:  dir,
	}
	pkgs, err := packages.Load(cfg, ".")
	require.NoError(t, err)
	require.Len(t, pkgs, 1)

	var msgs []string
	for _, e := range pkgs[0].Errors {
		msgs = append(msgs, e.Error())
	}
	assert.Empty(t, msgs)
	assert.NotNil(t, pkgs[0].Types)
}

func nestedGroupsIdl() *ir.Idl {
	idl := ir.NewIdl(ir.OriginLegacy)
	idl.Metadata = ir.Metadata{Name: "swapper", Address: "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"}
	idl.Instructions = []*ir.Instruction{{
		Name:          "swap",
		Docs:          []string{"Swaps between two pools.\nBoth pools must share a mint."},
		Discriminator: []byte{248, 198, 158, 145, 225, 117, 135, 200},
		Args:          []ir.Field{{Name: "amount", Type: ir.Primitive{Kind: ir.KindU64}}},
		Accounts: []ir.AccountConstraint{
			{Name: "user", Signer: true},
			{Name: "pool_a.vault", Writable: true, Docs: []string{"Vault of the\nfirst pool."}},
			{Name: "pool_a.token_program"},
			{Name: "pool_b.vault", Writable: true},
			{Name: "pool_b.token_program"},
		},
	}}
	return idl
}

func TestGoSourceTypeChecks(t *testing.T) {
	idls := map[string]func(t *testing.T) *ir.Idl{
		"legacy_counter": func(t *testing.T) *ir.Idl { return compileFixture(t, "legacy_counter.json") },
		"new_counter":    func(t *testing.T) *ir.Idl { return compileFixture(t, "new_counter.json") },
		"wide":           func(*testing.T) *ir.Idl { return wideIdl() },
		"swapper":        func(*testing.T) *ir.Idl { return nestedGroupsIdl() },
	}
	root := moduleDir(t)
	for name, build := range idls {
		t.Run(name, func(t *testing.T) {
			files, err := GoSource(build(t), GoOptions{})
			require.NoError(t, err)
			dir := filepath.Join(root, name)
			writeFiles(t, dir, files)
			typeCheck(t, dir)
		})
	}
}

// roundTripMain exercises the generated counter client. It prints the
// encoding of a value it builds, re-encodes the account data it is given,
// and reports whether event decoding rejects a trailing byte.
const roundTripMain = `package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"

	counter "IMPORT"
)

func main() {
	if err := run(os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(dynamic string) error {
	authority := solana.MustPublicKeyFromBase58("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")
	data, err := counter.EncodeCounterAccount(&counter.Counter{
		Authority: authority,
		Count:     258,
		Mode:      counter.Mode{Kind: counter.ModeKindStep, Step: &counter.ModeStep{Size: 3}},
		History:   []int16{-1, 2},
		Tag:       [4]uint8{1, 2, 3, 4},
	})
	if err != nil {
		return err
	}
	fmt.Printf("account=%x\n", data)

	in, err := hex.DecodeString(dynamic)
	if err != nil {
		return err
	}
	decoded, err := counter.DecodeCounterAccount(in)
	if err != nil {
		return err
	}
	again, err := counter.EncodeCounterAccount(decoded)
	if err != nil {
		return err
	}
	fmt.Printf("reencoded=%x\n", again)

	memo := "hi"
	ix, err := counter.NewIncrementInstruction(7, &memo, counter.IncrementAccounts{Counter: authority, Authority: authority})
	if err != nil {
		return err
	}
	ixData, err := ix.Data()
	if err != nil {
		return err
	}
	fmt.Printf("increment=%x\n", ixData)

	ev, err := counter.EncodeCounterChangedEvent(&counter.CounterChanged{Count: 9})
	if err != nil {
		return err
	}
	fmt.Printf("event=%x\n", ev)
	_, err = counter.DecodeCounterChangedEvent(append(ev, 0))
	fmt.Printf("trailing_rejected=%t\n", err != nil)
	return nil
}
`

func TestGoSourceMatchesCodec(t *testing.T) {
	idl := compileFixture(t, "legacy_counter.json")
	surface, err := Generate(idl)
	require.NoError(t, err)
	files, err := GoSource(idl, GoOptions{})
	require.NoError(t, err)

	root := moduleDir(t)
	writeFiles(t, filepath.Join(root, "counter"), files)
	importPath := modulePath + "/internal/clientgen/" + filepath.Base(root) + "/counter"
	writeFiles(t, root, map[string][]byte{"main.go": []byte(strings.Replace(roundTripMain, "IMPORT", importPath, 1))})

	account, _ := surface.Account("Counter")
	dynamic, err := account.Encode(counterValue())
	require.NoError(t, err)

	cmd := exec.Command("go", "run", ".", hex.EncodeToString(dynamic))
	cmd.Dir = root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	require.NoError(t, err, stderr.String())

	got := make(map[string][]byte)
	flags := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), "=")
		require.True(t, ok, sc.Text())
		if b, err := hex.DecodeString(val); err == nil {
			got[key] = b
		} else {
			flags[key] = val
		}
	}

	// Generated encoder, dynamic decoder.
	v, err := account.Decode(got["account"])
	require.NoError(t, err)
	want := codec.NewStruct(
		codec.F("authority", counterValue().Fields[0].Value),
		codec.F("count", codec.U64(258)),
		codec.F("mode", codec.Variant("Step", codec.F("size", codec.U32(3)))),
		codec.F("history", codec.List{codec.I16(-1), codec.I16(2)}),
		codec.F("tag", codec.List{codec.U8(1), codec.U8(2), codec.U8(3), codec.U8(4)}),
	)
	assert.True(t, codec.Equal(want, v), "decoded %v", v)
	wantBytes, err := account.Encode(want)
	require.NoError(t, err)
	assert.Equal(t, wantBytes, got["account"])

	// Dynamic encoder, generated decoder.
	assert.Equal(t, dynamic, got["reencoded"])

	inc, _ := surface.Instruction("increment")
	wantIx, err := inc.Build(codec.U8(7), codec.Some(codec.String("hi")))
	require.NoError(t, err)
	assert.Equal(t, wantIx, got["increment"])

	event, _ := surface.Event("CounterChanged")
	wantEv, err := event.Encode(codec.NewStruct(codec.F("count", codec.U64(9))))
	require.NoError(t, err)
	assert.Equal(t, wantEv, got["event"])
	assert.Equal(t, "true", flags["trailing_rejected"])
}
