package models

import (
	"testing"
	"time"
)

// TestUrgencyForType 验证指令类型到紧急程度的推导
func TestUrgencyForType(t *testing.T) {
	cases := []struct {
		pingType PingType
		want     PingUrgency
	}{
		{PingTypeRing, UrgencyMedium},
		{PingTypeCheckIn, UrgencyMedium},
		{PingTypeLocate, UrgencyLow},
		{PingTypeEmergency, UrgencyEmergency},
	}

	for _, c := range cases {
		if got := UrgencyForType(c.pingType); got != c.want {
			t.Errorf("UrgencyForType(%s) = %s, 期望 %s", c.pingType, got, c.want)
		}
	}
}

// TestTTLForUrgency 验证紧急指令30分钟、其余15分钟的有效时长
func TestTTLForUrgency(t *testing.T) {
	if got := TTLForUrgency(UrgencyEmergency); got != 30*time.Minute {
		t.Errorf("紧急指令TTL = %v, 期望 30m", got)
	}
	for _, u := range []PingUrgency{UrgencyLow, UrgencyMedium, UrgencyHigh} {
		if got := TTLForUrgency(u); got != 15*time.Minute {
			t.Errorf("TTLForUrgency(%s) = %v, 期望 15m", u, got)
		}
	}
}

// TestCreateAssignsIDAndExpiry 验证创建指令时分配ID和过期时间
func TestCreateAssignsIDAndExpiry(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewPingStoreWithClock(func() time.Time { return base })

	req := store.Create(PingTypeEmergency, "come home", UrgencyEmergency)
	if req.ID == "" {
		t.Fatal("创建的指令没有ID")
	}
	if !req.ExpiresAt.Equal(base.Add(30 * time.Minute)) {
		t.Errorf("过期时间 = %v, 期望 %v", req.ExpiresAt, base.Add(30*time.Minute))
	}

	other := store.Create(PingTypeRing, "", UrgencyMedium)
	if other.ID == req.ID {
		t.Error("两条指令分配了相同的ID")
	}
}

// TestAcknowledgeMonotonic 验证确认是单调的：首次写入生效，重复确认报错且不覆盖
func TestAcknowledgeMonotonic(t *testing.T) {
	store := NewPingStore()
	req := store.Create(PingTypeCheckIn, "", UrgencyMedium)

	if err := store.Acknowledge(req.ID, PingResponse{Message: "I'm OK"}); err != nil {
		t.Fatalf("首次确认失败: %v", err)
	}

	err := store.Acknowledge(req.ID, PingResponse{Message: "overwritten"})
	if err != ErrAlreadyAcknowledged {
		t.Fatalf("重复确认返回 %v, 期望 ErrAlreadyAcknowledged", err)
	}

	got, _ := store.Get(req.ID)
	if got.Response == nil || got.Response.Message != "I'm OK" {
		t.Errorf("响应被覆盖: %+v", got.Response)
	}
}

// TestAcknowledgeUnknownPing 验证确认不存在的指令报错
func TestAcknowledgeUnknownPing(t *testing.T) {
	store := NewPingStore()
	if err := store.Acknowledge("no-such-id", PingResponse{}); err != ErrPingNotFound {
		t.Errorf("确认不存在的指令返回 %v, 期望 ErrPingNotFound", err)
	}
}

// TestAcknowledgeAfterExpiry 验证过期后的确认仍被接受，过期只影响pending列表
func TestAcknowledgeAfterExpiry(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewPingStoreWithClock(func() time.Time { return current })

	req := store.Create(PingTypeRing, "", UrgencyMedium)

	// 时钟前进到过期之后
	current = current.Add(16 * time.Minute)

	if len(store.Pending()) != 0 {
		t.Fatal("过期指令仍出现在pending列表中")
	}
	if err := store.Acknowledge(req.ID, PingResponse{Message: "late"}); err != nil {
		t.Fatalf("过期后的确认被拒绝: %v", err)
	}

	got, _ := store.Get(req.ID)
	if !got.Acknowledged {
		t.Error("过期后的确认没有生效")
	}
}

// TestPendingExcludesAckedAndExpired 验证pending只包含未确认且未过期的指令
func TestPendingExcludesAckedAndExpired(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewPingStoreWithClock(func() time.Time { return current })

	expired := store.Create(PingTypeLocate, "", UrgencyLow)

	current = current.Add(20 * time.Minute)
	acked := store.Create(PingTypeRing, "", UrgencyMedium)
	fresh := store.Create(PingTypeCheckIn, "", UrgencyMedium)

	if err := store.Acknowledge(acked.ID, PingResponse{}); err != nil {
		t.Fatalf("确认失败: %v", err)
	}

	pending := store.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending条数 = %d, 期望 1", len(pending))
	}
	if pending[0].ID != fresh.ID {
		t.Errorf("pending[0].ID = %s, 期望 %s", pending[0].ID, fresh.ID)
	}
	_ = expired

	// 紧急指令在20分钟后仍未过期（30分钟TTL）
	current = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	emergency := store.Create(PingTypeEmergency, "", UrgencyEmergency)
	current = current.Add(20 * time.Minute)

	found := false
	for _, p := range store.Pending() {
		if p.ID == emergency.ID {
			found = true
		}
	}
	if !found {
		t.Error("20分钟后的紧急指令不在pending列表中")
	}
}

// TestHistoryOrderAndLimit 验证历史按创建时间倒序并截断到limit条
func TestHistoryOrderAndLimit(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewPingStoreWithClock(func() time.Time { return current })

	var ids []string
	for i := 0; i < 5; i++ {
		req := store.Create(PingTypeRing, "", UrgencyMedium)
		ids = append(ids, req.ID)
		current = current.Add(time.Minute)
	}

	history := store.History(3)
	if len(history) != 3 {
		t.Fatalf("历史条数 = %d, 期望 3", len(history))
	}
	// 最新的在前
	if history[0].ID != ids[4] || history[1].ID != ids[3] || history[2].ID != ids[2] {
		t.Errorf("历史排序错误: %s %s %s", history[0].ID, history[1].ID, history[2].ID)
	}

	// limit非法时回落到默认值
	if got := store.History(0); len(got) != 5 {
		t.Errorf("History(0)条数 = %d, 期望 5", len(got))
	}
}
