package economy

import (
	"errors"
	"testing"
)

func TestDebit_AllOrNothing(t *testing.T) {
	l, err := NewLedger(Bundle{Wood: 10})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	err = l.Debit(Bundle{Wood: 15})
	if !errors.Is(err, ErrInsufficient) {
		t.Fatalf("Debit(15) err = %v, want ErrInsufficient", err)
	}
	var sf *ShortfallError
	if !errors.As(err, &sf) || sf.Resource != Wood || sf.Have != 10 || sf.Need != 15 {
		t.Fatalf("shortfall = %+v", sf)
	}
	if got := l.Get(Wood); got != 10 {
		t.Fatalf("Wood after failed debit = %d, want 10", got)
	}

	if err := l.Debit(Bundle{Wood: 10}); err != nil {
		t.Fatalf("Debit(10): %v", err)
	}
	if got := l.Get(Wood); got != 0 {
		t.Fatalf("Wood after debit = %d, want 0", got)
	}
}

func TestDebit_MultiKindPartialShortfallRemovesNothing(t *testing.T) {
	l, _ := NewLedger(Bundle{Wood: 20, Stone: 3})
	if err := l.Debit(Bundle{Wood: 10, Stone: 5}); err == nil {
		t.Fatal("expected shortfall on stone")
	}
	if l.Get(Wood) != 20 || l.Get(Stone) != 3 {
		t.Fatalf("ledger changed after failed debit: %v", l.Contents())
	}
}

func TestNegativeQuantitiesRejected(t *testing.T) {
	var l Ledger
	if err := l.Credit(Bundle{Food: -1}); !errors.Is(err, ErrNegative) {
		t.Fatalf("Credit(-1) err = %v", err)
	}
	if err := l.Debit(Bundle{Food: -1}); !errors.Is(err, ErrNegative) {
		t.Fatalf("Debit(-1) err = %v", err)
	}
	if l.Total() != 0 {
		t.Fatal("ledger changed")
	}
}

func TestTransfer_ChecksBeforeMutating(t *testing.T) {
	from, _ := NewLedger(Bundle{Food: 4})
	to, _ := NewLedger(Bundle{Food: 1})

	if err := Transfer(&from, &to, Bundle{Food: 5}); err == nil {
		t.Fatal("expected transfer to fail")
	}
	if from.Get(Food) != 4 || to.Get(Food) != 1 {
		t.Fatalf("ledgers changed: from=%d to=%d", from.Get(Food), to.Get(Food))
	}

	if err := Transfer(&from, &to, Bundle{Food: 4}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if from.Get(Food) != 0 || to.Get(Food) != 5 {
		t.Fatalf("after transfer: from=%d to=%d", from.Get(Food), to.Get(Food))
	}
}

func TestParseResource(t *testing.T) {
	r, err := ParseResource(" Stone ")
	if err != nil || r != Stone {
		t.Fatalf("ParseResource(Stone) = %v, %v", r, err)
	}
	if _, err := ParseResource("stnoe"); err == nil {
		t.Fatal("expected error for misspelt resource")
	}
}

func TestLedger_JSONRoundTrip(t *testing.T) {
	l, _ := NewLedger(Bundle{Wood: 3, Hide: 2})
	data, err := l.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Ledger
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Contents() != l.Contents() {
		t.Fatalf("round trip = %v, want %v", back.Contents(), l.Contents())
	}
}
