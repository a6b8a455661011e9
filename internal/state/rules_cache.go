package state

import (
	"context"
	"encoding/base64"

	"aster-dn-bot/internal/market"

	"github.com/vmihailenco/msgpack/v5"
)

const rulesCachePrefix = "rules:"

// SaveSymbolRules caches exchange trading rules per market so sizing can
// proceed across restarts while exchangeInfo is unreachable. Encoded with
// msgpack to keep the kv rows compact.
func SaveSymbolRules(ctx context.Context, store Store, marketName string, rules market.SymbolRules) error {
	if store == nil || rules.Symbol == "" {
		return nil
	}
	payload, err := msgpack.Marshal(rules)
	if err != nil {
		return err
	}
	key := rulesCachePrefix + marketName + ":" + rules.Symbol
	return store.Set(ctx, key, base64.StdEncoding.EncodeToString(payload))
}

func LoadSymbolRules(ctx context.Context, store Store, marketName, symbol string) (market.SymbolRules, bool, error) {
	if store == nil {
		return market.SymbolRules{}, false, nil
	}
	raw, ok, err := store.Get(ctx, rulesCachePrefix+marketName+":"+symbol)
	if err != nil || !ok {
		return market.SymbolRules{}, false, err
	}
	payload, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return market.SymbolRules{}, false, err
	}
	var rules market.SymbolRules
	if err := msgpack.Unmarshal(payload, &rules); err != nil {
		return market.SymbolRules{}, false, err
	}
	return rules, true, nil
}
