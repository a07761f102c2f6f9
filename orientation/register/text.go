package register

// Text forms let enumerations travel through YAML/TOML documents by name.

func (m OperationMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *OperationMode) UnmarshalText(text []byte) error {
	v, err := ParseOperationMode(string(text))
	*m = v
	return err
}

func (m PowerMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *PowerMode) UnmarshalText(text []byte) error {
	v, err := ParsePowerMode(string(text))
	*m = v
	return err
}

func (s TempSource) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *TempSource) UnmarshalText(text []byte) error {
	v, err := ParseTempSource(string(text))
	*s = v
	return err
}

func (c ClockSource) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockSource) UnmarshalText(text []byte) error {
	v, err := ParseClockSource(string(text))
	*c = v
	return err
}

func (s SystemStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (e SystemError) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (u AccelUnit) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *AccelUnit) UnmarshalText(text []byte) error {
	v, err := ParseAccelUnit(string(text))
	*u = v
	return err
}

func (u AngularRateUnit) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *AngularRateUnit) UnmarshalText(text []byte) error {
	v, err := ParseAngularRateUnit(string(text))
	*u = v
	return err
}

func (u EulerUnit) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *EulerUnit) UnmarshalText(text []byte) error {
	v, err := ParseEulerUnit(string(text))
	*u = v
	return err
}

func (u TemperatureUnit) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *TemperatureUnit) UnmarshalText(text []byte) error {
	v, err := ParseTemperatureUnit(string(text))
	*u = v
	return err
}

func (o OrientationConvention) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *OrientationConvention) UnmarshalText(text []byte) error {
	v, err := ParseOrientationConvention(string(text))
	*o = v
	return err
}

func (r Remap) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Remap) UnmarshalText(text []byte) error {
	v, err := ParseRemap(string(text))
	*r = v
	return err
}
