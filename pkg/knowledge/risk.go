package knowledge

// RiskTag labels a security-relevant observation
type RiskTag string

const (
	TagSSHExposed              RiskTag = "ssh_exposed"
	TagWebExposed              RiskTag = "web_exposed"
	TagRDPExposed              RiskTag = "rdp_exposed"
	TagFTPExposed              RiskTag = "ftp_exposed"
	TagTelnetExposed           RiskTag = "telnet_exposed"
	TagRPCExposed              RiskTag = "rpc_exposed"
	TagSMBExposed              RiskTag = "smb_exposed"
	TagNonstandardPortsOpen    RiskTag = "nonstandard_ports_open"
	TagServerVersionDisclosure RiskTag = "server_version_disclosure"
)

// NoDescription is the description of a tag missing from the table
const NoDescription = "No description available."

// portTags maps a single open port to the tag it raises
var portTags = map[int]RiskTag{
	22:   TagSSHExposed,
	80:   TagWebExposed,
	443:  TagWebExposed,
	3389: TagRDPExposed,
	21:   TagFTPExposed,
	23:   TagTelnetExposed,
	135:  TagRPCExposed,
	445:  TagSMBExposed,
}

var defaultTagDescriptions = map[RiskTag]string{
	TagSSHExposed:              "SSH service (port 22) is exposed to the internet. If relying on password auth, it is highly susceptible to brute-force attacks.",
	TagWebExposed:              "Web services (HTTP/HTTPS) are accessible. This increases the attack surface for web application vulnerabilities (SQLi, XSS, etc.).",
	TagRDPExposed:              "Remote Desktop Protocol (port 3389) is exposed. Highly targeted by ransomware groups and brute-force campaigns.",
	TagFTPExposed:              "FTP service (port 21) is exposed. FTP often transmits credentials in cleartext and is considered insecure.",
	TagTelnetExposed:           "Telnet service (port 23) is exposed. Telnet is entirely unencrypted and obsolete; credentials and data can be easily sniffed.",
	TagSMBExposed:              "SMB (port 445) is exposed. This is a CRITICAL risk typically blocked by ISPs. It allows file sharing and potential remote exploitation (e.g., EternalBlue).",
	TagRPCExposed:              "RPC Endpoint Mapper (port 135) is exposed. Often used for reconnaissance and lateral movement in Windows environments.",
	TagServerVersionDisclosure: "The web server is revealing its version header. Attackers can use this to identify known vulnerabilities (CVEs) for that specific version.",
	TagNonstandardPortsOpen:    "One or more non-standard ports are open. These may be obscure services, backdoors, or misconfigured applications requiring manual investigation.",
}
