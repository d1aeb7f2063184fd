package entity

import "anoa.com/pharmatrade/internal/criteria"

// Criteria schemas, one per table. Path tokens are the JSON field names.
var (
	UserSchema        = criteria.NewSchema("users")
	PharmacySchema    = criteria.NewSchema("pharmacies")
	ContactSchema     = criteria.NewSchema("pharmacy_contacts")
	TradeRecordSchema = criteria.NewSchema("trade_records")
)

func init() {
	for _, s := range []*criteria.Schema{UserSchema, PharmacySchema, ContactSchema, TradeRecordSchema} {
		s.Column("uuid", "uuid", criteria.KindID).
			Column("created_at", "created_at", criteria.KindTime).
			Column("updated_at", "updated_at", criteria.KindTime)
	}

	UserSchema.
		Column("username", "username", criteria.KindText).
		Column("email", "email", criteria.KindText).
		Column("role", "role", criteria.KindText)

	PharmacySchema.
		Column("name", "name", criteria.KindText).
		BelongsTo("user", "user_id", UserSchema)

	ContactSchema.
		Column("contact_name", "contact_name", criteria.KindText).
		BelongsTo("user", "user_id", UserSchema).
		BelongsTo("pharmacy", "pharmacy_id", PharmacySchema)

	TradeRecordSchema.
		Column("description", "description", criteria.KindText).
		Column("amount", "amount", criteria.KindNumber).
		Column("transaction_date", "transaction_date", criteria.KindTime).
		Column("deleted_by_giver", "deleted_by_giver", criteria.KindBool).
		Column("deleted_by_receiver", "deleted_by_receiver", criteria.KindBool).
		BelongsTo("giver", "giver_id", PharmacySchema).
		BelongsTo("receiver", "receiver_id", PharmacySchema).
		BelongsTo("recorder", "recorder_id", UserSchema).
		BelongsTo("last_modified_by", "last_modified_by_id", UserSchema)
}
