package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chitieu/internal/core"
)

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		text string
		want core.Intent
	}{
		{"/profile Tên: An", core.IntentProfile},
		{"/PROFILE", core.IntentProfile},
		{"báo cáo chi tiêu", core.IntentReport},
		{"Báo Cáo tuần này 200k", core.IntentReport},
		{"nhắc tôi mỗi tối", core.IntentReminder},
		{"ăn cá viên 200k", core.IntentExpenseEntry},
		{"mua sách", core.IntentExpenseEntry},
		{"trả tiền điện", core.IntentExpenseEntry},
		{"xin chào", core.IntentUnknown},
		{"", core.IntentUnknown},
		{"hello /profile", core.IntentUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectIntent(tc.text))
		})
	}
}
