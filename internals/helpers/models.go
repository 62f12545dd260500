package helpers

type Transaction struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
}

type Block struct {
	Index        int64         `json:"index"`
	Timestamp    float64       `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	Proof        int64         `json:"proof"`
	PreviousHash string        `json:"previous_hash"`
}

// Clone returns a copy of b that shares no memory with it.
func (b Block) Clone() Block {
	txs := make([]Transaction, len(b.Transactions))
	copy(txs, b.Transactions)
	b.Transactions = txs
	return b
}

type MineResponse struct {
	Message      string        `json:"message"`
	Index        int64         `json:"index"`
	Transactions []Transaction `json:"transactions"`
	Proof        int64         `json:"proof"`
	PreviousHash string        `json:"previous_hash"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ChainResponse struct {
	Chain  []Block `json:"chain"`
	Length int     `json:"length"`
}
