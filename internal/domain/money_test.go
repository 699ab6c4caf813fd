package domain

import "testing"

func TestMoney_Add(t *testing.T) {
	tests := []struct {
		name    string
		a       Money
		b       Money
		want    int64
		wantErr bool
	}{
		{"simple add", NewMoney(1500, "USD"), NewMoney(500, "USD"), 2000, false},
		{"add zero", NewMoney(1500, "USD"), Zero("USD"), 1500, false},
		{"negative result allowed", NewMoney(100, "USD"), NewMoney(-200, "USD"), -100, false},
		{"currency mismatch", NewMoney(100, "USD"), NewMoney(100, "EUR"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Add(tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Add() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Amount != tt.want {
				t.Errorf("Add() = %v, want %v", got.Amount, tt.want)
			}
		})
	}
}

func TestMoney_Sub(t *testing.T) {
	got, err := NewMoney(5000, "USD").Sub(NewMoney(4970, "USD"))
	if err != nil {
		t.Fatalf("Sub() error = %v", err)
	}
	if got.Amount != 30 {
		t.Errorf("Sub() = %v, want 30", got.Amount)
	}

	if _, err := NewMoney(100, "USD").Sub(NewMoney(50, "GBP")); err != ErrCurrencyMismatch {
		t.Errorf("Sub() error = %v, want ErrCurrencyMismatch", err)
	}
}

func TestMoney_MulQty(t *testing.T) {
	tests := []struct {
		name string
		m    Money
		qty  int
		want int64
	}{
		{"two tickets", NewMoney(1500, "USD"), 2, 3000},
		{"single ticket", NewMoney(2500, "USD"), 1, 2500},
		{"zero quantity", NewMoney(1500, "USD"), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.MulQty(tt.qty); got.Amount != tt.want {
				t.Errorf("MulQty() = %v, want %v", got.Amount, tt.want)
			}
		})
	}
}

func TestMoney_Display(t *testing.T) {
	tests := []struct {
		name string
		m    Money
		want string
	}{
		{"whole dollars", NewMoney(5000, "USD"), "50.00"},
		{"with cents", NewMoney(4970, "USD"), "49.70"},
		{"under a dollar", NewMoney(30, "USD"), "0.30"},
		{"zero", Zero("USD"), "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Display(); got != tt.want {
				t.Errorf("Display() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFeeSchedule_Fee(t *testing.T) {
	fees := FeeSchedule{PercentBps: 290, FixedFee: 30}

	tests := []struct {
		name     string
		subtotal Money
		want     int64
	}{
		// 2.9% of 5000 = 145, plus 30 fixed
		{"standard subtotal", NewMoney(5000, "USD"), 175},
		// 2.9% of 1000 = 29, plus 30 fixed
		{"small subtotal", NewMoney(1000, "USD"), 59},
		// 2.9% of 1715 = 49.735 rounds up to 50, plus 30
		{"rounds half up", NewMoney(1715, "USD"), 80},
		{"zero subtotal", Zero("USD"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fees.Fee(tt.subtotal); got.Amount != tt.want {
				t.Errorf("Fee() = %v, want %v", got.Amount, tt.want)
			}
		})
	}
}

func TestFeeSchedule_PercentFee(t *testing.T) {
	fees := FeeSchedule{PercentBps: 290, FixedFee: 30}

	got := fees.PercentFee(NewMoney(5000, "USD"))
	if got.Amount != 145 {
		t.Errorf("PercentFee() = %v, want 145", got.Amount)
	}

	if got := fees.PercentFee(Zero("USD")); got.Amount != 0 {
		t.Errorf("PercentFee(zero) = %v, want 0", got.Amount)
	}
}
