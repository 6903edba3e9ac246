// Package all imports every adapter for side-effect registration.
//
//	import _ "github.com/Vodeneev/sharpedge/internal/parser/parsers/all"
package all

import (
	_ "github.com/Vodeneev/sharpedge/internal/parser/parsers/crabsports"
	_ "github.com/Vodeneev/sharpedge/internal/parser/parsers/pinnacle"
)
