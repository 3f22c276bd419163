package events

import "heatpump2mqtt/internal/core/domain"

// SnapshotToUpdateEvents converts a mirror snapshot into sensor updates.
// Signals never read are skipped.
func SnapshotToUpdateEvents(snap domain.Snapshot, registers domain.RegisterMap) []any {
	var events []any

	for _, r := range snap.Readings {
		if !r.Valid {
			continue
		}
		id := GenericSensorUpdateEvent{Id: r.Signal.String()}
		if registers.Entry(r.Signal).Scale == domain.ScaleBool {
			events = append(events, BinarySensorUpdateEvent{
				GenericSensorUpdateEvent: id,
				Value:                    r.Raw != 0,
			})
			continue
		}
		events = append(events, SensorUpdateEvent{
			GenericSensorUpdateEvent: id,
			Value:                    r.Value(),
			Decimals:                 r.Scale.Decimals(),
		})
	}

	// Operating mode
	modeText := OPERATING_MODE_CH_TEXT
	if snap.Mode == domain.ModeDomesticHotWater {
		modeText = OPERATING_MODE_DHW_TEXT
	}
	events = append(events, TextSensorUpdateEvent{
		GenericSensorUpdateEvent: GenericSensorUpdateEvent{Id: SENSOR_ID_OPERATING_MODE},
		Value:                    modeText,
	})
	events = append(events, SwitchSensorUpdateEvent{
		GenericSensorUpdateEvent: GenericSensorUpdateEvent{Id: SWITCH_ID_HOT_WATER_MODE},
		Value:                    snap.Mode == domain.ModeDomesticHotWater,
	})

	return events
}
