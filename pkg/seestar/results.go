package seestar

// TimeResult is the result of pi_get_time.
type TimeResult struct {
	Year     int    `json:"year"`
	Mon      int    `json:"mon"`
	Day      int    `json:"day"`
	Hour     int    `json:"hour"`
	Min      int    `json:"min"`
	Sec      int    `json:"sec"`
	TimeZone string `json:"time_zone"`
}

// CameraInfoResult is the result of get_camera_info.
type CameraInfoResult struct {
	ChipSize       [2]int  `json:"chip_size"`
	Bins           [2]int  `json:"bins"`
	PixelSizeUm    float64 `json:"pixel_size_um"`
	UnityGain      int     `json:"unity_gain"`
	HasCooler      bool    `json:"has_cooler"`
	IsColor        bool    `json:"is_color"`
	IsUSB3Host     bool    `json:"is_usb3_host"`
	HasHPC         bool    `json:"has_hpc"`
	DebayerPattern string  `json:"debayer_pattern"`
}

// CameraStateResult is the result of get_camera_state.
type CameraStateResult struct {
	State string `json:"state"`
	Name  string `json:"name"`
	Path  string `json:"path"`
}

// DiskVolumeResult is the result of get_disk_volume.
type DiskVolumeResult struct {
	TotalMB int `json:"totalMB"`
	FreeMB  int `json:"freeMB"`
}

// DeviceStateResult is the part of get_device_state folded into Status.
type DeviceStateResult struct {
	PiStatus *PiStatusReport `json:"pi_status"`
}

// ViewStateResult is the part of get_view_state folded into Status.
type ViewStateResult struct {
	View *struct {
		TargetName string `json:"target_name"`
		Stage      string `json:"stage"`
		State      string `json:"state"`
	} `json:"View"`
}
