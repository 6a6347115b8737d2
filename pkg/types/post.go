package types

import "time"

type PostKind string

const (
	PostKindRecibo        PostKind = "recibo"
	PostKindMutirao       PostKind = "mutirao"
	PostKindDica          PostKind = "dica"
	PostKindAviso         PostKind = "aviso"
	PostKindTransparencia PostKind = "transparencia"
)

type Post struct {
	ID             string    `db:"id"`
	AuthorID       string    `db:"author_id"`
	NeighborhoodID *string   `db:"neighborhood_id"`
	Kind           PostKind  `db:"kind"`
	Body           string    `db:"body"`
	ReceiptID      *string   `db:"receipt_id"`
	MediaID        *string   `db:"media_id"`
	CreatedAt      time.Time `db:"created_at"`
}
