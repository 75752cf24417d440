package knowledge

import "github.com/ExclusiveAccount/reconforge/pkg/models"

// defaultPortRecords maps well-known ports to service and risk metadata
var defaultPortRecords = map[int]models.KnowledgeRecord{
	20: {
		Service:     "FTP-Data",
		Risk:        "Medium",
		Description: "File Transfer Protocol (Data Channel). Transmits files in cleartext.",
		Attacks:     "Sniffing, Man-in-the-Middle (MitM), Data exfiltration.",
	},
	21: {
		Service:     "FTP",
		Risk:        "High",
		Description: "File Transfer Protocol (Control). Used for authentication and commands.",
		Attacks:     "Brute Force, Anonymous Login, Cleartext credentials sniffing, FTP bounce.",
	},
	22: {
		Service:     "SSH",
		Risk:        "Medium/High",
		Description: "Secure Shell. Standard for secure remote administration.",
		Attacks:     "Brute Force (Hydra/Medusa), Credential Stuffing, Weak SSH Keys, SSH User Enumeration.",
	},
	23: {
		Service:     "Telnet",
		Risk:        "Critical",
		Description: "Unencrypted remote administration protocol. Obsolete and insecure.",
		Attacks:     "Sniffing credentials (cleartext), MitM, Brute Force.",
	},
	25: {
		Service:     "SMTP",
		Risk:        "Medium",
		Description: "Simple Mail Transfer Protocol. Used for sending emails.",
		Attacks:     "Open Relay abuse, SPAM, User Enumeration (VRFY/EXPN), Phishing campaigns.",
	},
	53: {
		Service:     "DNS",
		Risk:        "Low/Medium",
		Description: "Domain Name System. Translates domain names to IPs.",
		Attacks:     "DNS Amplification DDoS, Zone Transfer (AXFR), Cache Poisoning.",
	},
	80: {
		Service:     "HTTP",
		Risk:        "Medium",
		Description: "Hypertext Transfer Protocol. Unencrypted web traffic.",
		Attacks:     "SQL Injection, XSS, Cleartext sniffing, Directory Traversal, Web Shells.",
	},
	110: {
		Service:     "POP3",
		Risk:        "Medium",
		Description: "Post Office Protocol v3. Retrieves emails.",
		Attacks:     "Brute Force, Cleartext authentication sniffing.",
	},
	111: {
		Service:     "RPCbind",
		Risk:        "Medium",
		Description: "Maps RPC services to ports (UNIX).",
		Attacks:     "Reconnaissance (rpcinfo), DDoS reflection.",
	},
	135: {
		Service:     "MSRPC",
		Risk:        "High",
		Description: "Microsoft RPC Endpoint Mapper. Essential for Windows networking.",
		Attacks:     "Reconnaissance, RPC DCOM exploits, Lateral Movement.",
	},
	137: {
		Service:     "NetBIOS-NS",
		Risk:        "Medium",
		Description: "NetBIOS Name Service. Resolves NetBIOS names.",
		Attacks:     "Reconnaissance, NetBIOS name spoofing (LLMNR/NBT-NS poisoning).",
	},
	139: {
		Service:     "NetBIOS-SSN",
		Risk:        "High",
		Description: "NetBIOS Session Service. Used for file sharing.",
		Attacks:     "SMB Enumeration, Null Session, Brute Force.",
	},
	143: {
		Service:     "IMAP",
		Risk:        "Medium",
		Description: "Internet Message Access Protocol. Retrieves emails.",
		Attacks:     "Brute Force, Cleartext sniffing (if not IMAPS).",
	},
	389: {
		Service:     "LDAP",
		Risk:        "High",
		Description: "Lightweight Directory Access Protocol. Directory services.",
		Attacks:     "Anonymous binding, User Enumeration, LDAP Injection, Pass-the-hash.",
	},
	443: {
		Service:     "HTTPS",
		Risk:        "Low",
		Description: "Secure HTTP. Encrypted web traffic.",
		Attacks:     "Heartbleed, POODLE (if old SSL/TLS), Web App exploitations (SQLi/XSS).",
	},
	445: {
		Service:     "SMB",
		Risk:        "Critical",
		Description: "Server Message Block. Windows file sharing and remote execution.",
		Attacks:     "EternalBlue (WannaCry), PsExec Lateral Movement, Null Session, Brute Force.",
	},
	587: {
		Service:     "SMTP (Submission)",
		Risk:        "Medium",
		Description: "Secure email submission.",
		Attacks:     "Brute Force, Open Relay (rare).",
	},
	1433: {
		Service:     "MSSQL",
		Risk:        "High",
		Description: "Microsoft SQL Server.",
		Attacks:     "SA Brute Force, SQL Injection, xp_cmdshell RCE.",
	},
	1521: {
		Service:     "Oracle DB",
		Risk:        "High",
		Description: "Oracle Database listener.",
		Attacks:     "TNS Poisoning, SID Enumeration, Default credentials.",
	},
	3306: {
		Service:     "MySQL",
		Risk:        "High",
		Description: "MySQL Database.",
		Attacks:     "Brute Force, SQL Injection, Authentication Bypass (rare legacy).",
	},
	3389: {
		Service:     "RDP",
		Risk:        "High",
		Description: "Remote Desktop Protocol. Windows GUI remote access.",
		Attacks:     "BlueKeep, Brute Force, Credential Stuffing, MitM (if no NLA).",
	},
	5432: {
		Service:     "PostgreSQL",
		Risk:        "High",
		Description: "PostgreSQL Database.",
		Attacks:     "Brute Force, Remote Code Execution (if misconfigured).",
	},
	5900: {
		Service:     "VNC",
		Risk:        "High",
		Description: "Virtual Network Computing. Remote desktop.",
		Attacks:     "Brute Force, No Authentication exploit.",
	},
	6379: {
		Service:     "Redis",
		Risk:        "High",
		Description: "Redis Key-Value Store.",
		Attacks:     "Unauthenticated Access, RCE via crude write.",
	},
	8080: {
		Service:     "HTTP-Alt",
		Risk:        "Medium",
		Description: "Alternative HTTP port (often Tomcat/Proxy).",
		Attacks:     "Tomcat Manager Brute Force, Web vulnerabilities.",
	},
	8443: {
		Service:     "HTTPS-Alt",
		Risk:        "Low/Medium",
		Description: "Alternative HTTPS port.",
		Attacks:     "Web vulnerabilities.",
	},
	9200: {
		Service:     "Elasticsearch",
		Risk:        "High",
		Description: "Elasticsearch REST API.",
		Attacks:     "Unauth Data Access, RCE (Log4Shell legacy).",
	},
	27017: {
		Service:     "MongoDB",
		Risk:        "High",
		Description: "MongoDB NoSQL Database.",
		Attacks:     "Unauthenticated Access, Data Dumping.",
	},
}

// UnknownPort is returned for ports with no entry in the table
var UnknownPort = models.KnowledgeRecord{
	Service:     "Unknown",
	Risk:        "Unknown",
	Description: "Non-standard or unmapped port.",
	Attacks:     "Service enumeration required (nmap -sV).",
}

// commonPorts is the allowlist behind the nonstandard_ports_open heuristic
var commonPorts = []int{
	20, 21, 22, 23, 25, 53, 80, 110, 135, 139, 143, 443, 445, 587,
	993, 995, 3306, 3389, 5900, 8000, 8080, 8443,
}
