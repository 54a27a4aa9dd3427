package models

// WalletType identifies a supported wallet extension.
type WalletType string

const (
	WalletUnisat    WalletType = "unisat"
	WalletXverse    WalletType = "xverse"
	WalletOKX       WalletType = "okx"
	WalletLeather   WalletType = "leather"
	WalletPhantom   WalletType = "phantom"
	WalletMagicEden WalletType = "magiceden"
	WalletOYL       WalletType = "oyl"
	WalletWizz      WalletType = "wizz"
)

// AllWallets is the ordered list of supported wallets.
var AllWallets = []WalletType{
	WalletUnisat, WalletXverse, WalletOKX, WalletLeather,
	WalletPhantom, WalletMagicEden, WalletOYL, WalletWizz,
}

// Network is the canonical network token reported to callers.
type Network string

const (
	NetworkLivenet Network = "livenet"
	NetworkTestnet Network = "testnet"
	NetworkSignet  Network = "signet"
)

// ConnectionState is the lifecycle state of a provider.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// AddressPurpose tags what an address is used for.
type AddressPurpose string

const (
	PurposePayment  AddressPurpose = "payment"
	PurposeOrdinals AddressPurpose = "ordinals"
	PurposeStacks   AddressPurpose = "stacks"
)

// AddressType is the script type of an address.
type AddressType string

const (
	AddressP2TR    AddressType = "p2tr"
	AddressP2WPKH  AddressType = "p2wpkh"
	AddressP2SH    AddressType = "p2sh"
	AddressP2PKH   AddressType = "p2pkh"
	AddressP2WSH   AddressType = "p2wsh"
	AddressStacks  AddressType = "stacks"
	AddressUnknown AddressType = ""
)

// Account is one address exposed by a wallet.
type Account struct {
	Address     string         `json:"address"`
	PublicKey   string         `json:"publicKey,omitempty"`
	Purpose     AddressPurpose `json:"purpose,omitempty"`
	AddressType AddressType    `json:"addressType,omitempty"`
}

// Balance is the canonical balance in satoshis. Total == Confirmed + Unconfirmed.
type Balance struct {
	Confirmed   int64 `json:"confirmed"`
	Unconfirmed int64 `json:"unconfirmed"`
	Total       int64 `json:"total"`
}

// Inscription is the canonical inscription record. Fields the wallet did not
// report stay nil or empty so callers can tell "unknown" from "zero".
type Inscription struct {
	InscriptionID      string `json:"inscriptionId"`
	InscriptionNumber  *int64 `json:"inscriptionNumber,omitempty"`
	Address            string `json:"address,omitempty"`
	OutputValue        *int64 `json:"outputValue,omitempty"`
	Content            string `json:"content,omitempty"`
	ContentType        string `json:"contentType,omitempty"`
	ContentLength      *int64 `json:"contentLength,omitempty"`
	Timestamp          *int64 `json:"timestamp,omitempty"`
	GenesisTransaction string `json:"genesisTransaction,omitempty"`
	Location           string `json:"location,omitempty"`
	Output             string `json:"output,omitempty"`
	Offset             *int64 `json:"offset,omitempty"`
}

// InscriptionPage is one page of inscriptions.
type InscriptionPage struct {
	List  []Inscription `json:"list"`
	Total int           `json:"total"`
}

// InscriptionCollection is the result of walking every inscription page.
// Truncated is set when the page cap stopped the walk before the wallet
// signalled the end of data.
type InscriptionCollection struct {
	List      []Inscription `json:"list"`
	Pages     int           `json:"pages"`
	Truncated bool          `json:"truncated"`
}

// SignInput selects inputs of a PSBT to be signed by an address.
type SignInput struct {
	Address        string `json:"address" validate:"required"`
	PublicKey      string `json:"publicKey,omitempty"`
	SigningIndexes []int  `json:"signingIndexes" validate:"required,min=1,dive,min=0"`
	SighashTypes   []int  `json:"sighashTypes,omitempty"`
}

// SignPsbtOptions is the caller-facing PSBT signing options. Either
// InputIndexes or Inputs selects what to sign; Inputs wins when both are set.
type SignPsbtOptions struct {
	AutoFinalized *bool       `json:"autoFinalized,omitempty"`
	InputIndexes  []int       `json:"inputIndexes,omitempty"`
	Inputs        []SignInput `json:"inputs,omitempty" validate:"omitempty,dive"`
	Broadcast     bool        `json:"broadcast,omitempty"`
}

// SignedPsbt is the result of a PSBT signing call.
type SignedPsbt struct {
	PsbtHex string `json:"psbtHex"`
	TxID    string `json:"txid,omitempty"`
}

// MessageProtocol selects the message signature scheme.
type MessageProtocol string

const (
	MessageECDSA   MessageProtocol = "ecdsa"
	MessageBIP322  MessageProtocol = "bip322-simple"
	MessageDefault MessageProtocol = ""
)

// InscriptionRequest describes a new inscription to create.
type InscriptionRequest struct {
	ContentType string `json:"contentType" validate:"required"`
	Content     string `json:"content" validate:"required"`
	// PayloadType is "PLAIN_TEXT" or "BASE_64".
	PayloadType string `json:"payloadType" validate:"omitempty,oneof=PLAIN_TEXT BASE_64"`
	FeeRate     int64  `json:"feeRate,omitempty" validate:"omitempty,min=1"`
	Recipient   string `json:"recipient,omitempty"`
}

// RuneBalance is one rune held by the connected account.
type RuneBalance struct {
	RuneID       string `json:"runeId,omitempty"`
	RuneName     string `json:"runeName"`
	Amount       string `json:"amount"`
	Divisibility int    `json:"divisibility"`
	Symbol       string `json:"symbol,omitempty"`
}

// EtchRequest describes a rune etching.
type EtchRequest struct {
	RuneName     string `json:"runeName" validate:"required"`
	Divisibility int    `json:"divisibility" validate:"min=0,max=38"`
	Symbol       string `json:"symbol,omitempty"`
	Premine      string `json:"premine,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Cap          string `json:"cap,omitempty"`
	FeeRate      int64  `json:"feeRate,omitempty"`
}

// MintRequest describes a rune mint.
type MintRequest struct {
	RuneName    string `json:"runeName" validate:"required"`
	Repeats     int    `json:"repeats" validate:"min=1"`
	Destination string `json:"destination,omitempty"`
	FeeRate     int64  `json:"feeRate,omitempty"`
}

// AtomicalBalance is one ARC-20 or NFT holding.
type AtomicalBalance struct {
	AtomicalID string `json:"atomicalId,omitempty"`
	Ticker     string `json:"ticker,omitempty"`
	Type       string `json:"type,omitempty"`
	Amount     int64  `json:"amount"`
}

// ProtocolResult is the opaque result of a protocol-specific operation.
type ProtocolResult struct {
	TxID   string         `json:"txid,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// WalletInfo describes a detected wallet.
type WalletInfo struct {
	Type      WalletType `json:"type"`
	Name      string     `json:"name"`
	Installed bool       `json:"installed"`
	Source    string     `json:"source"` // global path the object was found at
}

// Activity is one journaled facade operation.
type Activity struct {
	ID         int64      `json:"id"`
	Wallet     WalletType `json:"wallet"`
	Operation  string     `json:"operation"`
	Status     string     `json:"status"` // "ok" or "error"
	TxID       string     `json:"txid,omitempty"`
	Address    string     `json:"address,omitempty"`
	ErrorCode  string     `json:"errorCode,omitempty"`
	Message    string     `json:"message,omitempty"`
	DurationMs int64      `json:"durationMs"`
	CreatedAt  string     `json:"createdAt"`
}

// Activity statuses.
const (
	ActivityOK    = "ok"
	ActivityError = "error"
)
