package services

import (
	"fmt"

	"chitieu/internal/core"
)

const (
	welcomeText = "Chào bạn! Tôi là bot quản lý chi tiêu cá nhân thông minh.\n" +
		"Hãy cập nhật thông tin cá nhân của bạn bằng lệnh /profile.\n" +
		"Ví dụ: /profile Tên: Huy, Thu nhập: 15,000,000 đồng, Ngân sách: 10,000,000 đồng, Mục tiêu tiết kiệm: 5,000,000 đồng, Mục tiêu sử dụng: Tiêu dùng, Đầu tư, Giải trí, Chi phí cố định, Tiết kiệm.\n" +
		"Sau đó, bạn có thể nhập giao dịch chi tiêu như: 'Hôm nay tôi đã chi 150,000 đồng cho ăn trưa'."

	helpText = "Hướng dẫn sử dụng bot:\n" +
		"- /profile: Cập nhật thông tin cá nhân.\n" +
		"- Nhập giao dịch chi tiêu bằng câu lệnh tự nhiên.\n" +
		"- Bot sẽ tự động review và đưa ra lời khuyên sau mỗi giao dịch.\n" +
		"- Các lệnh báo cáo: /report, /report_week, /report_month."

	LargeExpenseText    = "❗ Khoản chi này khá lớn! Bạn có chắc chắn rằng đây là khoản chi cần thiết không?"
	MissingAmountText   = "Không nhận diện được số tiền. Vui lòng nhập lại kèm số tiền, ví dụ: 'ăn trưa 50k'."
	ReportHintText      = "Để xem báo cáo, hãy sử dụng các lệnh: /report, /report_week, /report_month."
	ReminderAckText     = "Lệnh nhắc nhở đã được nhận. Tôi sẽ nhắc bạn mỗi ngày tổng chi tiêu."
	UnknownText         = "Xin lỗi, tôi không hiểu yêu cầu của bạn. Vui lòng nhập lại hoặc dùng /help để được hỗ trợ."
	ProfileRejectedText = "Không nhận diện được tên. Vui lòng nhập lại theo định dạng mẫu."
	ProfileUpdatedText  = "Thông tin cá nhân của bạn đã được cập nhật."
	reviewHeading       = "Nhận xét cách chi tiêu của bạn:\n"
)

// savedText confirms a stored expense; foreign amounts also show the
// original figure.
func savedText(e core.ExpenseRecord) string {
	if e.Currency() != core.VND {
		return fmt.Sprintf("Đã lưu chi tiêu: %s đồng (tương đương %s %s), loại: %s, vào ngày %s.",
			core.FormatAmount(e.Amount.AmountVND), core.FormatAmount(e.Amount.OriginalAmount), e.Currency(), e.Category, e.Date)
	}
	return fmt.Sprintf("Đã lưu chi tiêu: %s đồng, loại: %s, vào ngày %s.",
		core.FormatAmount(e.Amount.AmountVND), e.Category, e.Date)
}
