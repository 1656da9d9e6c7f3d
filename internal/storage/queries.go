package storage

const (
	qInsertUser = `INSERT OR IGNORE INTO users (user_id, chat_id) VALUES (?, ?)`

	qListUsers = `SELECT user_id, chat_id FROM users ORDER BY created_at, user_id`

	qInsertExpense = `
INSERT INTO expenses (user_id, date, amount, original_amount, category, currency)
VALUES (?, ?, ?, ?, ?, ?)`

	qExpensesByPeriod = `
SELECT id, user_id, date, amount, original_amount, category, currency
FROM expenses
WHERE user_id = ? AND date BETWEEN ? AND ?
ORDER BY id`

	qUpsertProfile = `
INSERT OR REPLACE INTO profiles (user_id, name, income, budget, savings_goal, spending_targets)
VALUES (?, ?, ?, ?, ?, ?)`

	qGetProfile = `
SELECT name, income, budget, savings_goal, spending_targets
FROM profiles
WHERE user_id = ?`

	qInsertReview = `
INSERT INTO reviews (user_id, period, date_from, date_to, total, body, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	qLatestReview = `
SELECT user_id, period, date_from, date_to, total, body, created_at
FROM reviews
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`
)
