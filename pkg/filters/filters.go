// Package filters is the photometric-system registry: for each named
// system it knows the legal bandpass names and, per band, the effective
// wavelength and width needed to turn AB magnitudes into photon counts.
package filters

import (
	"fmt"
	"sort"

	"skysim/pkg/units"
)

// A Bandpass is one filter of a photometric system.
type Bandpass struct {
	Name   string
	LamEff units.Quantity // effective wavelength
	DLam   units.Quantity // filter width
}

// band construction helper, wavelengths in angstrom
func band(name string, lamEff, dlam float64) Bandpass {
	return Bandpass{Name: name, LamEff: units.Angstroms(lamEff), DLam: units.Angstroms(dlam)}
}

var systems = map[string][]Bandpass{
	"SDSSugriz": {
		band("u", 3546, 558),
		band("g", 4670, 1158),
		band("r", 6156, 1111),
		band("i", 7471, 1045),
		band("z", 8918, 1124),
	},
	"LSST": {
		band("u", 3671, 473),
		band("g", 4827, 1253),
		band("r", 6223, 1206),
		band("i", 7546, 1174),
		band("z", 8691, 997),
		band("y", 9712, 871),
	},
	"DECam": {
		band("u", 3552, 496),
		band("g", 4730, 1105),
		band("r", 6415, 1296),
		band("i", 7836, 1246),
		band("z", 9258, 1107),
		band("Y", 10095, 533),
	},
	"HSC": {
		band("g", 4754, 1258),
		band("r", 6175, 1288),
		band("i", 7711, 1283),
		band("z", 8898, 729),
		band("y", 9763, 729),
	},
}

// SystemNames lists the registered photometric systems.
func SystemNames() []string {
	names := make([]string, 0, len(systems))
	for name := range systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// System returns the bandpasses of a photometric system. Unknown systems
// are a configuration error, caught at imager construction.
func System(name string) ([]Bandpass, error) {
	bands, ok := systems[name]
	if !ok {
		return nil, fmt.Errorf("unknown photometric system '%s' (have %v)", name, SystemNames())
	}
	out := make([]Bandpass, len(bands))
	copy(out, bands)
	return out, nil
}

// Properties looks up a single bandpass within a system.
func Properties(system, bandpass string) (Bandpass, error) {
	bands, err := System(system)
	if err != nil {
		return Bandpass{}, err
	}
	for _, b := range bands {
		if b.Name == bandpass {
			return b, nil
		}
	}
	return Bandpass{}, fmt.Errorf("no bandpass '%s' in photometric system '%s'", bandpass, system)
}
