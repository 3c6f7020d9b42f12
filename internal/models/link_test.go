package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLink_Expired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	assert.False(t, (&Link{}).Expired(now))
	assert.True(t, (&Link{ExpiresAt: &past}).Expired(now))
	assert.True(t, (&Link{ExpiresAt: &now}).Expired(now))
	assert.False(t, (&Link{ExpiresAt: &future}).Expired(now))
}

func TestLink_CloneDeepCopies(t *testing.T) {
	exp := time.Now()
	l := &Link{Code: "abc", Tags: []string{"a"}, ExpiresAt: &exp, QRCode: []byte{1}}
	c := l.Clone()
	c.Tags[0] = "b"
	*c.ExpiresAt = exp.Add(time.Hour)
	c.QRCode[0] = 2

	assert.Equal(t, "a", l.Tags[0])
	assert.Equal(t, exp, *l.ExpiresAt)
	assert.Equal(t, byte(1), l.QRCode[0])
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Promo", "promo", "", "launch "})
	assert.Equal(t, []string{"launch", "promo"}, got)
	assert.Equal(t, []string{"a", "b"}, SplitTags("b,a"))
	assert.Equal(t, []string{}, SplitTags(""))
	assert.Equal(t, "a,b", JoinTags([]string{"a", "b"}))
}

func TestVisitorKey_StableAndDeviceSensitive(t *testing.T) {
	d := DeviceInfo{Browser: "Chrome", OS: "Windows", Device: "Desktop"}
	k1 := VisitorKey("1.2.3.4", d)
	assert.Equal(t, k1, VisitorKey("1.2.3.4", d))
	assert.Len(t, k1, 32)
	assert.NotContains(t, k1, "1.2.3.4")

	d.Device = "Mobile"
	assert.NotEqual(t, k1, VisitorKey("1.2.3.4", d))
	assert.NotEqual(t, k1, VisitorKey("1.2.3.5", DeviceInfo{Browser: "Chrome", OS: "Windows", Device: "Desktop"}))
}

func TestReferrerDomain(t *testing.T) {
	assert.Equal(t, "news.ycombinator.com", ReferrerDomain("https://news.ycombinator.com/item?id=1"))
	assert.Equal(t, "", ReferrerDomain(""))
	assert.Equal(t, "", ReferrerDomain("://bad"))
}
