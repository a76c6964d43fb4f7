package chain

import "encoding/json"

// Msg is one instruction inside a transaction. Amounts cross this
// boundary as micro-unit decimal strings, never as floats.
type Msg struct {
	TypeURL string          `json:"type_url"`
	Value   json.RawMessage `json:"value"`
}

const (
	TypeSupply             = "/stone.lending.v1.MsgSupply"
	TypeWithdraw           = "/stone.lending.v1.MsgWithdraw"
	TypeSupplyCollateral   = "/stone.lending.v1.MsgSupplyCollateral"
	TypeWithdrawCollateral = "/stone.lending.v1.MsgWithdrawCollateral"
	TypeBorrow             = "/stone.lending.v1.MsgBorrow"
	TypeRepay              = "/stone.lending.v1.MsgRepay"
	TypeLiquidate          = "/stone.lending.v1.MsgLiquidate"
	TypeUpdatePrices       = "/stone.oracle.v1.MsgUpdatePrices"
)

type coinValue struct {
	Sender   string `json:"sender"`
	MarketID string `json:"market_id"`
	Denom    string `json:"denom"`
	Amount   string `json:"amount"`
}

func newCoinMsg(typeURL, sender, marketID, denom, amountMicro string) Msg {
	raw, _ := json.Marshal(coinValue{
		Sender:   sender,
		MarketID: marketID,
		Denom:    denom,
		Amount:   amountMicro,
	})
	return Msg{TypeURL: typeURL, Value: raw}
}

// One constructor per action kind the wallet can sign.

func NewSupplyMsg(sender, marketID, denom, amountMicro string) Msg {
	return newCoinMsg(TypeSupply, sender, marketID, denom, amountMicro)
}

func NewWithdrawMsg(sender, marketID, denom, amountMicro string) Msg {
	return newCoinMsg(TypeWithdraw, sender, marketID, denom, amountMicro)
}

func NewSupplyCollateralMsg(sender, marketID, denom, amountMicro string) Msg {
	return newCoinMsg(TypeSupplyCollateral, sender, marketID, denom, amountMicro)
}

func NewWithdrawCollateralMsg(sender, marketID, denom, amountMicro string) Msg {
	return newCoinMsg(TypeWithdrawCollateral, sender, marketID, denom, amountMicro)
}

func NewBorrowMsg(sender, marketID, denom, amountMicro string) Msg {
	return newCoinMsg(TypeBorrow, sender, marketID, denom, amountMicro)
}

func NewRepayMsg(sender, marketID, denom, amountMicro string) Msg {
	return newCoinMsg(TypeRepay, sender, marketID, denom, amountMicro)
}

// NewLiquidateMsg repays borrower debt in exchange for their collateral.
func NewLiquidateMsg(sender, marketID, borrower, denom, amountMicro string) Msg {
	raw, _ := json.Marshal(struct {
		coinValue
		Borrower string `json:"borrower"`
	}{
		coinValue: coinValue{Sender: sender, MarketID: marketID, Denom: denom, Amount: amountMicro},
		Borrower:  borrower,
	})
	return Msg{TypeURL: TypeLiquidate, Value: raw}
}

// NewSendMsg is a plain bank transfer, used by the test-net faucet.
func NewSendMsg(sender, recipient, denom, amountMicro string) Msg {
	raw, _ := json.Marshal(struct {
		Sender    string `json:"from_address"`
		Recipient string `json:"to_address"`
		Denom     string `json:"denom"`
		Amount    string `json:"amount"`
	}{Sender: sender, Recipient: recipient, Denom: denom, Amount: amountMicro})
	return Msg{TypeURL: "/cosmos.bank.v1beta1.MsgSend", Value: raw}
}

// NewPriceUpdateMsg wraps signed feed payloads for on-chain verification.
// Prepended to a price-sensitive instruction so the contract evaluates it
// against current prices.
func NewPriceUpdateMsg(sender string, updates [][]byte) Msg {
	raw, _ := json.Marshal(struct {
		Sender  string   `json:"sender"`
		Updates [][]byte `json:"updates"`
	}{Sender: sender, Updates: updates})
	return Msg{TypeURL: TypeUpdatePrices, Value: raw}
}
