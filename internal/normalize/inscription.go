package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Fantasim/btcconnect/internal/models"
)

// Inscription normalizes one inscription record. The identity may be under
// inscriptionId or id and the content type under contentType, content_type or
// mimeType. Absent fields stay unset.
//
// Only Xverse and OKX need field remapping: Xverse reports the output value as
// postage, and OKX reports a three-part location without a separate output.
func Inscription(raw json.RawMessage, wallet models.WalletType) (models.Inscription, error) {
	m, ok := object(raw)
	if !ok {
		return models.Inscription{}, malformed(string(wallet), "inscription", raw)
	}

	idRaw, ok := first(m, "inscriptionId", "id")
	if !ok {
		return models.Inscription{}, malformed(string(wallet), "inscription", raw)
	}
	id, ok := parseString(idRaw)
	if !ok || id == "" {
		return models.Inscription{}, malformed(string(wallet), "inscription", raw)
	}

	ins := models.Inscription{InscriptionID: id}
	ins.InscriptionNumber = intField(m, "inscriptionNumber", "number")
	ins.Address = stringField(m, "address")
	ins.OutputValue = intField(m, "outputValue")
	ins.Content = stringField(m, "content")
	ins.ContentType = stringField(m, "contentType", "content_type", "mimeType")
	ins.ContentLength = intField(m, "contentLength", "content_length")
	ins.Timestamp = intField(m, "timestamp")
	ins.GenesisTransaction = stringField(m, "genesisTransaction", "genesis_transaction")
	ins.Location = stringField(m, "location")
	ins.Output = stringField(m, "output")
	ins.Offset = intField(m, "offset")

	switch wallet {
	case models.WalletXverse:
		if ins.OutputValue == nil {
			ins.OutputValue = intField(m, "postage")
		}
		if ins.Location == "" && ins.Output != "" && ins.Offset != nil {
			ins.Location = fmt.Sprintf("%s:%d", ins.Output, *ins.Offset)
		}
	case models.WalletOKX:
		if ins.Output == "" && ins.Location != "" {
			parts := strings.Split(ins.Location, ":")
			if len(parts) == 3 {
				ins.Output = parts[0] + ":" + parts[1]
			}
		}
	}

	return ins, nil
}

// InscriptionPage normalizes one page. Accepted envelopes: {list,total},
// {inscriptions,total}, {results,total} and a bare array. When the wallet does
// not report a total the page length is used.
func InscriptionPage(raw json.RawMessage, wallet models.WalletType) (models.InscriptionPage, error) {
	var (
		items []json.RawMessage
		total *int64
	)

	if a, ok := array(raw); ok {
		items = a
	} else if m, ok := object(raw); ok {
		listRaw, ok := first(m, "list", "inscriptions", "results")
		if !ok {
			return models.InscriptionPage{}, malformed(string(wallet), "getInscriptions", raw)
		}
		if items, ok = array(listRaw); !ok {
			return models.InscriptionPage{}, malformed(string(wallet), "getInscriptions", raw)
		}
		total = intField(m, "total")
	} else {
		return models.InscriptionPage{}, malformed(string(wallet), "getInscriptions", raw)
	}

	page := models.InscriptionPage{List: make([]models.Inscription, 0, len(items))}
	for _, it := range items {
		ins, err := Inscription(it, wallet)
		if err != nil {
			return models.InscriptionPage{}, err
		}
		page.List = append(page.List, ins)
	}

	page.Total = len(page.List)
	if total != nil {
		page.Total = int(*total)
	}
	return page, nil
}

func intField(m map[string]json.RawMessage, keys ...string) *int64 {
	v, ok := first(m, keys...)
	if !ok {
		return nil
	}
	n, ok := parseInt(v)
	if !ok {
		return nil
	}
	return n
}

func stringField(m map[string]json.RawMessage, keys ...string) string {
	v, ok := first(m, keys...)
	if !ok {
		return ""
	}
	s, _ := parseString(v)
	return s
}
