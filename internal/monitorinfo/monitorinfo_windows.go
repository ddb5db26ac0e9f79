//go:build windows

package monitorinfo

import (
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

const monitorQuery = "SELECT InstanceName, ManufacturerName, ProductCodeID, SerialNumberID, UserFriendlyName, WeekOfManufacture, YearOfManufacture FROM WmiMonitorID"

// Query lists the WmiMonitorID instances of active monitors.
func Query() ([]Monitor, error) {
	var monitors []Monitor
	err := withWMI(`root\wmi`, func(svc *ole.IDispatch) error {
		resultVar, err := oleutil.CallMethod(svc, "ExecQuery", monitorQuery)
		if err != nil {
			return fmt.Errorf("monitorinfo: ExecQuery: %w", err)
		}
		defer resultVar.Clear()

		result := resultVar.ToIDispatch()
		if result == nil {
			return fmt.Errorf("monitorinfo: ExecQuery: nil result")
		}

		return oleutil.ForEach(result, func(v *ole.VARIANT) error {
			item := v.ToIDispatch()
			if item == nil {
				return nil
			}
			m, err := readMonitor(item)
			if err != nil {
				log.Debug("skipping monitor instance", "error", err.Error())
				return nil
			}
			monitors = append(monitors, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	log.Debug("monitors queried", "count", len(monitors))
	return monitors, nil
}

func withWMI(namespace string, action func(svc *ole.IDispatch) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		oleErr, ok := err.(*ole.OleError)
		// S_FALSE: COM already initialized on this thread
		if !ok || oleErr.Code() != 1 {
			return fmt.Errorf("monitorinfo: initialize COM: %w", err)
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return fmt.Errorf("monitorinfo: create locator: %w", err)
	}
	defer unknown.Release()

	locator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("monitorinfo: query locator: %w", err)
	}
	defer locator.Release()

	svcVar, err := oleutil.CallMethod(locator, "ConnectServer", nil, namespace)
	if err != nil {
		return fmt.Errorf("monitorinfo: connect %s: %w", namespace, err)
	}
	defer svcVar.Clear()

	svc := svcVar.ToIDispatch()
	if svc == nil {
		return fmt.Errorf("monitorinfo: connect %s: nil service", namespace)
	}
	return action(svc)
}

func readMonitor(item *ole.IDispatch) (Monitor, error) {
	var m Monitor

	nameVar, err := oleutil.GetProperty(item, "InstanceName")
	if err != nil {
		return m, fmt.Errorf("InstanceName: %w", err)
	}
	m.InstanceName = nameVar.ToString()
	nameVar.Clear()

	m.Manufacturer = stringProperty(item, "ManufacturerName")
	m.ProductCode = stringProperty(item, "ProductCodeID")
	m.Serial = stringProperty(item, "SerialNumberID")
	m.FriendlyName = stringProperty(item, "UserFriendlyName")
	m.Year = intProperty(item, "YearOfManufacture")
	m.Week = intProperty(item, "WeekOfManufacture")
	return m, nil
}

func stringProperty(item *ole.IDispatch, name string) string {
	v, err := oleutil.GetProperty(item, name)
	if err != nil {
		return ""
	}
	defer v.Clear()
	arr := v.ToArray()
	if arr == nil {
		return ""
	}
	return decodeString(arr.ToValueArray())
}

func intProperty(item *ole.IDispatch, name string) int {
	v, err := oleutil.GetProperty(item, name)
	if err != nil {
		return 0
	}
	defer v.Clear()
	switch n := v.Value().(type) {
	case int32:
		return int(n)
	case uint8:
		return int(n)
	case int64:
		return int(n)
	case uint16:
		return int(n)
	}
	return 0
}
