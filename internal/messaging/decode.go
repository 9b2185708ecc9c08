package messaging

import "encoding/json"

func decodeJSON(raw string, out interface{}) error {
	return json.Unmarshal([]byte(raw), out)
}
