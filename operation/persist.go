package operation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Persisted is the data-only form of one operation inside a migration
// artifact. Payloads are plain JSON documents; nothing executable is ever
// written to disk.
type Persisted struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Encode serializes an operation list for persistence.
func Encode(ops []Operation) ([]Persisted, error) {
	out := make([]Persisted, len(ops))
	for i, op := range ops {
		payload, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize operation %d (%s): %w", i, op.Kind(), err)
		}
		out[i] = Persisted{Kind: op.Kind(), Payload: payload}
	}
	return out, nil
}

// Decode rebuilds an operation list from its persisted form.
func Decode(persisted []Persisted) ([]Operation, error) {
	ops := make([]Operation, len(persisted))
	for i, p := range persisted {
		op, err := decodeOne(p)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops[i] = op
	}
	return ops, nil
}

func decodeOne(p Persisted) (Operation, error) {
	var op Operation
	switch p.Kind {
	case KindCreateTable:
		op = &CreateTable{}
	case KindDropTable:
		op = &DropTable{}
	case KindAddColumn:
		op = &AddColumn{}
	case KindDropColumn:
		op = &DropColumn{}
	case KindAlterColumn:
		op = &AlterColumn{}
	case KindCreateIndex:
		op = &CreateIndex{}
	case KindDropIndex:
		op = &DropIndex{}
	case KindAddForeignKey:
		op = &AddForeignKey{}
	case KindDropForeignKey:
		op = &DropForeignKey{}
	case KindCreateEnum:
		op = &CreateEnum{}
	case KindDropEnum:
		op = &DropEnum{}
	case KindAlterEnum:
		op = &AlterEnum{}
	default:
		return nil, fmt.Errorf("unknown operation kind %q", p.Kind)
	}
	if err := json.Unmarshal(p.Payload, op); err != nil {
		return nil, fmt.Errorf("failed to parse %s payload: %w", p.Kind, err)
	}
	return op, nil
}

// Fingerprint computes a stable hash over an operation set. Each operation
// is hashed individually and the digests are sorted before the final hash,
// so two migrations with the same operations in a different order share a
// fingerprint.
func Fingerprint(ops []Operation) (string, error) {
	digests := make([]string, len(ops))
	for i, op := range ops {
		payload, err := json.Marshal(op)
		if err != nil {
			return "", fmt.Errorf("failed to serialize operation %d: %w", i, err)
		}
		sum := sha256.Sum256(append([]byte(op.Kind()), payload...))
		digests[i] = hex.EncodeToString(sum[:])
	}
	sort.Strings(digests)
	final := sha256.New()
	for _, d := range digests {
		final.Write([]byte(d))
	}
	return hex.EncodeToString(final.Sum(nil)), nil
}
